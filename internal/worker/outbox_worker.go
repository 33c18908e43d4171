package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/repository"
)

// Drainer empties the outbox.
type Drainer interface {
	Drain(ctx context.Context) (repository.DrainResult, error)
}

// OutboxWorker polls the outbox so entries written outside a sweep, or left
// behind by a failed dispatch, still go out.
type OutboxWorker struct {
	relay    Drainer
	interval time.Duration
	logger   *zap.Logger
}

// NewOutboxWorker builds the poller.
func NewOutboxWorker(relay Drainer, interval time.Duration, logger *zap.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxWorker{relay: relay, interval: interval, logger: logger}
}

// Run drains on every tick until ctx is done.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := w.relay.Drain(ctx)
			if err != nil && ctx.Err() == nil {
				w.logger.Error("outbox drain failed", zap.Error(err))
				continue
			}
			if res.Dispatched > 0 || res.Failed > 0 {
				w.logger.Debug("outbox drained",
					zap.Int("dispatched", res.Dispatched),
					zap.Int("failed", res.Failed))
			}
		}
	}
}
