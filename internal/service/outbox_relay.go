package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// OutboxRelay moves committed outbox entries onto the event dispatcher.
type OutboxRelay struct {
	outbox      repository.OutboxRepository
	dispatcher  events.Dispatcher
	batchSize   int
	maxAttempts int
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewOutboxRelay builds the relay.
func NewOutboxRelay(outbox repository.OutboxRepository, dispatcher events.Dispatcher, batchSize, maxAttempts int, metrics *observability.Metrics, logger *zap.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OutboxRelay{
		outbox:      outbox,
		dispatcher:  dispatcher,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
	}
}

// Drain dispatches pending entries batch by batch until a batch comes back
// short or makes no progress.
func (r *OutboxRelay) Drain(ctx context.Context) (repository.DrainResult, error) {
	var total repository.DrainResult
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := r.outbox.Drain(ctx, r.batchSize, r.maxAttempts, r.dispatch)
		total.Dispatched += res.Dispatched
		total.Failed += res.Failed
		r.metrics.RecordOutbox(res.Dispatched, res.Failed)
		if err != nil {
			return total, err
		}
		if res.Dispatched+res.Failed < r.batchSize || res.Dispatched == 0 {
			return total, nil
		}
	}
}

// Pending counts entries that are still waiting for dispatch.
func (r *OutboxRelay) Pending(ctx context.Context) (int64, error) {
	return r.outbox.CountPending(ctx)
}

func (r *OutboxRelay) dispatch(ctx context.Context, entry domain.OutboxEntry) error {
	event, err := events.FromOutbox(entry)
	if err != nil {
		r.logger.Error("undecodable outbox entry",
			zap.Int64("outbox_id", entry.ID),
			zap.String("event_type", entry.EventType),
			zap.Error(err))
		return err
	}
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("outbox dispatch failed",
			zap.Int64("outbox_id", entry.ID),
			zap.String("event_type", entry.EventType),
			zap.Int("attempt", entry.Attempts+1),
			zap.Error(err))
		return err
	}
	return nil
}
