// Command sweep runs one expiry sweep and exits. It is meant for cron-style
// schedulers: exit status 0 means the sweep and the outbox drain succeeded.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.DSN == "" {
		logger.Error("POSTGRES_DSN is required for a one-shot sweep")
		return 1
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return 1
	}
	defer pg.Close()

	opts := app.Options{}
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		opts.Publisher = redis
		opts.Locker = redis
	}

	container := app.New(cfg, repository.NewPostgresStores(pg.PoolHandle()), logger, opts)
	report, ran, err := container.Scheduler.RunOnce(ctx)
	if err != nil {
		logger.Error("expiry sweep failed", zap.Error(err))
		return 1
	}
	if !ran {
		logger.Info("expiry sweep skipped, another run holds the lock")
		return 0
	}
	logger.Info("expiry sweep complete",
		zap.Int("expired", report.Expired),
		zap.Int("expiring_soon", report.ExpiringSoon),
		zap.Int("dispatched", report.Dispatched))
	return 0
}
