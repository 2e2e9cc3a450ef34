package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"attesta/internal/events"
	"attesta/internal/platform/config"
	"attesta/internal/platform/database"
	"attesta/internal/platform/health"
	"attesta/internal/platform/httpserver"
	"attesta/internal/platform/logger"
	"attesta/internal/registry/handler"
	"attesta/internal/registry/metrics"
	"attesta/internal/registry/service"
	"attesta/internal/registry/store"
	"attesta/internal/registry/tracer"
	"attesta/internal/token"
	httptransport "attesta/internal/transport/http"
	"attesta/migrations"
	"attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

const (
	tokenIssuer   = "attesta"
	tokenAudience = "attesta"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the registry service.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing attesta registry",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"persistent", cfg.DatabaseURL != "",
		"kafka", cfg.KafkaBrokers != "",
	)

	pool, ledger, roles, err := buildStores(cfg, log)
	if err != nil {
		log.Error("storage initialization failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventLog := events.NewInMemoryLog()
	sinks := []events.Sink{eventLog}

	var kafkaSink *events.KafkaSink
	if cfg.KafkaBrokers != "" {
		kafkaSink, err = events.NewKafkaSink(events.KafkaConfig{
			Brokers:         cfg.KafkaBrokers,
			Topic:           cfg.KafkaTopic,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka sink initialization failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	publisher := events.NewPublisher(sinks,
		events.WithAsyncBuffer(256),
		events.WithPublisherLogger(log),
	)
	defer publisher.Close()

	m := metrics.New()
	registry := service.NewService(roles, ledger,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithTracer(tracer.NewOTel()),
		service.WithPublisher(publisher),
	)

	if err := bootstrap(context.Background(), registry, cfg, log); err != nil {
		log.Error("registry bootstrap failed", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.JWTSigningKey, tokenIssuer, tokenAudience, cfg.TokenTTL)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			return pool.Health(context.Background())
		})
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Registry: handler.New(registry, log,
			handler.WithEventLog(eventLog),
			handler.WithMetrics(m),
		),
		Health:    healthHandler,
		Principal: tokens,
		Logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// buildStores selects persistent stores when a database is configured and
// falls back to in-memory stores otherwise.
func buildStores(cfg config.Server, log *slog.Logger) (*database.Pool, store.CredentialStore, store.RoleStore, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, ledger will not survive restarts")
		return nil, store.NewInMemoryCredentialStore(), store.NewInMemoryRoleStore(), nil
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := applyMigrations(pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return pool, store.NewPostgresCredentialStore(pool.DB()), store.NewPostgresRoleStore(pool.DB()), nil
}

// applyMigrations executes the embedded migration files in lexical order.
// Statements are idempotent (CREATE TABLE IF NOT EXISTS) so reapplying on
// every start is safe.
func applyMigrations(pool *database.Pool) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		statements, err := fs.ReadFile(migrations.FS, entry.Name())
		if err != nil {
			return err
		}
		if _, err := pool.DB().Exec(string(statements)); err != nil {
			return err
		}
	}
	return nil
}

// bootstrap performs the one-time initialization and seeds configured
// issuers. A registry that was initialized on a previous start is normal.
func bootstrap(ctx context.Context, registry *service.Service, cfg config.Server, log *slog.Logger) error {
	admin, err := domain.ParseAddress(cfg.BootstrapAdmin)
	if err != nil {
		return err
	}

	switch err := registry.Initialize(ctx, admin); {
	case err == nil:
		log.Info("registry initialized", "bootstrap_admin", admin)
	case dErrors.HasCode(err, dErrors.CodeAlreadyInitialized):
		log.Info("registry already initialized")
	default:
		return err
	}

	for _, raw := range cfg.BootstrapIssuers {
		account, err := domain.ParseAddress(raw)
		if err != nil {
			return err
		}
		if err := registry.AddInstitution(ctx, admin, account); err != nil {
			return err
		}
		log.Info("issuer seeded", "account", account)
	}
	return nil
}
