package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/bootstrap"
	httpRouter "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/interfaces/http"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/config"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sunat", cfg.SUNAT.Environment).
		Msg("iniciando API")

	ctx := context.Background()
	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer c.Close()

	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		ReadTimeout: 10 * time.Second,
		// envío y consulta a SUNAT son síncronos en estas rutas
		WriteTimeout: cfg.SUNAT.HTTPTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación electrónica SUNAT",
	}))

	app.Get("/health", func(fc *fiber.Ctx) error {
		if err := c.Pool.Ping(fc.UserContext()); err != nil {
			return fc.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db_down", "service": cfg.App.Name})
		}
		return fc.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		EDocs:     c.Service,
		Auth:      c.Auth,
		Tenants:   c.Tenants,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
