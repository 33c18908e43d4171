package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var stores repository.Stores
	checks := []handlers.DependencyCheck{}
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		stores = repository.NewPostgresStores(pg.PoolHandle())
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Pinger: pg})
	} else {
		stores = memory.NewStore().Stores()
	}

	opts := app.Options{}
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		opts.Publisher = redis
		opts.Locker = redis
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis, Optional: true})
	}

	container := app.New(cfg, stores, logger, opts)
	if err := container.Bootstrap(ctx); err != nil {
		logger.Fatal("failed to bootstrap", zap.Error(err))
	}
	server := container.HTTP(checks...)

	if cfg.Sweep.Enabled {
		go container.Scheduler.Run(ctx)
	}
	go container.OutboxWorker.Run(ctx)

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("helpdesk started",
		zap.String("addr", cfg.App.Addr()),
		zap.Bool("postgres", pg.Enabled()),
		zap.Bool("sweep", cfg.Sweep.Enabled))

	waitForShutdown(logger)
	cancel()

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
