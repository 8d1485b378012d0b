// Package bootstrap arma el grafo de dependencias a partir de la configuración.
// Lo comparten cmd/api y cmd/worker.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/auth"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/ebilling"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/gcs"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/lock"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/postgres"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat/signer"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/config"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

// Container componentes listos para usar. Close libera pool, redis y GCS.
type Container struct {
	Pool       *pgxpool.Pool
	Service    *ebilling.Service
	Reconciler *ebilling.Reconciler
	Auth       *auth.AuthUseCase
	Tenants    repository.TenantRepository

	closers []func() error
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

// Build conecta a PostgreSQL (y opcionalmente Redis/GCS) y construye el motor.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	c.Pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	blobs, err := blobStore(ctx, cfg.Storage, pool, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	var locker ebilling.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, rdb.Close)
		locker = lock.New(rdb, cfg.Redis.LockTTL)
	}

	var (
		tenants   = postgres.NewTenantRepository(pool)
		props     = postgres.NewPropertiesRepository(pool)
		sources   = postgres.NewSourceDocumentRepository(pool)
		docs      = postgres.NewElectronicDocumentRepository(pool)
		files     = postgres.NewFileRepository(pool)
		logs      = postgres.NewLogRepository(pool)
		tx        = postgres.NewTxRunner(pool)
		listeners = ebilling.Listeners{
			ebilling.NewLoggingListener(log),
			ebilling.NewCancelWindowListener(time.Now),
		}
	)

	creator, err := ebilling.NewCreator(sources, docs, tx, listeners, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("motor de creación: %w", err)
	}
	assembler := ebilling.NewAssembler(sources,
		postgres.NewContactRepository(pool), postgres.NewLocationRepository(pool),
		postgres.NewUnitConverter(pool), files, blobs, log)
	interp := ebilling.NewInterpreter(docs, logs, log)

	tokens := sunat.NewTokenProvider(&http.Client{Timeout: cfg.SUNAT.HTTPTimeout}, cfg.SUNAT.TokenSkew, log)

	pipeline := ebilling.NewPipeline(ebilling.PipelineDeps{
		Registry:    ebilling.NewRegistry(assembler),
		Sources:     sources,
		Docs:        docs,
		Tx:          tx,
		Files:       files,
		Blobs:       blobs,
		Builder:     sunat.NewXMLBuilder(),
		Signer:      signer.NewService(log),
		SOAP:        sunat.NewSOAPClient(cfg.SUNAT.HTTPTimeout, log),
		REST:        sunat.NewRESTClient(cfg.SUNAT.HTTPTimeout, tokens, log),
		Publisher:   sunat.NewPublishClient(cfg.SUNAT.HTTPTimeout, log),
		Interpreter: interp,
		Defaults: ebilling.Defaults{
			Environment:     cfg.SUNAT.Environment,
			SOAPEndpoint:    cfg.SUNAT.SOAPEndpoint,
			ConsultEndpoint: cfg.SUNAT.ConsultEndpoint,
			RESTAuthURL:     cfg.SUNAT.RESTAuthURL,
			RESTBaseURL:     cfg.SUNAT.RESTBaseURL,
			RESTPath:        cfg.SUNAT.RESTPath,
			PublishURL:      cfg.SUNAT.PublishURL,
		},
	}, log)

	c.Tenants = tenants
	c.Reconciler = ebilling.NewReconciler(tenants, props, creator, pipeline, docs, locker, cfg.Worker.TenantBudget, log)
	c.Service = ebilling.NewService(ebilling.ServiceDeps{
		Tenants:     tenants,
		Props:       props,
		Sources:     sources,
		Docs:        docs,
		Files:       files,
		Logs:        logs,
		Blobs:       blobs,
		Creator:     creator,
		Pipeline:    pipeline,
		Interpreter: interp,
		Reconciler:  c.Reconciler,
		Listeners:   listeners,
	}, log)
	c.Auth = auth.NewAuthUseCase(postgres.NewUserRepository(pool), auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	return c, nil
}

func blobStore(ctx context.Context, cfg config.StorageConfig, pool *pgxpool.Pool, c *Container) (repository.BlobStore, error) {
	if cfg.Provider != "gcs" {
		return postgres.NewBlobStore(pool)
	}
	client, err := gcs.NewClient(ctx, cfg.GCSCredentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("cliente GCS: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	return gcs.NewBlobStore(ctx, client, cfg.GCSBucket)
}
