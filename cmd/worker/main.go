// worker ejecuta el reconciliador en intervalos: crea, envía, consolida y consulta
// los comprobantes de todos los tenants activos.
//
// Uso: go run ./cmd/worker [-once]
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/ebilling"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/bootstrap"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/config"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "una sola corrida y salir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer c.Close()

	log.Info().
		Dur("interval", cfg.Worker.Interval).
		Dur("tenant_budget", cfg.Worker.TenantBudget).
		Bool("once", *once).
		Msg("worker iniciado")

	run(ctx, c.Reconciler, log)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Worker.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker detenido")
			return
		case <-ticker.C:
			run(ctx, c.Reconciler, log)
		}
	}
}

// run una pasada; un error de un tenant no detiene a los demás.
func run(ctx context.Context, r *ebilling.Reconciler, log *logger.Logger) {
	start := time.Now()
	reports, err := r.RunOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listar tenants")
		return
	}
	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
		}
	}
	log.Info().
		Int("tenants", len(reports)).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("corrida de reconciliación")
}
