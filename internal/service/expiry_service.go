package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// SweepReport summarizes one expiry sweep.
type SweepReport struct {
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Expired        int           `json:"expired"`
	ExpiringSoon   int           `json:"expiring_soon"`
	AlreadyHandled int           `json:"already_handled"`
	Dispatched     int           `json:"dispatched"`
	DispatchFailed int           `json:"dispatch_failed"`
}

// ExpiryService scans ticket deadlines. Overdue tickets are flagged expired
// and admins are told; tickets inside the lookahead window get a single
// warning.
type ExpiryService struct {
	tickets   repository.TicketRepository
	relay     *OutboxRelay
	lookahead time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// ExpiryDependencies bundles collaborators for the expiry service.
type ExpiryDependencies struct {
	TicketRepo repository.TicketRepository
	Relay      *OutboxRelay
	Lookahead  time.Duration
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewExpiryService builds the service.
func NewExpiryService(deps ExpiryDependencies) *ExpiryService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	lookahead := deps.Lookahead
	if lookahead <= 0 {
		lookahead = time.Hour
	}
	return &ExpiryService{
		tickets:   deps.TicketRepo,
		relay:     deps.Relay,
		lookahead: lookahead,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       now,
	}
}

// Sweep runs both phases then drains the outbox so notifications go out in
// the same run. A failing phase does not stop the other; its error is
// returned after the drain.
func (s *ExpiryService) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	now := s.now().UTC()
	report := SweepReport{StartedAt: now}
	var errs []error

	if err := s.expireOverdue(ctx, now, &report); err != nil {
		errs = append(errs, fmt.Errorf("expire overdue: %w", err))
	}
	if err := s.warnExpiringSoon(ctx, now, &report); err != nil {
		errs = append(errs, fmt.Errorf("warn expiring: %w", err))
	}

	if s.relay != nil {
		res, err := s.relay.Drain(ctx)
		report.Dispatched = res.Dispatched
		report.DispatchFailed = res.Failed
		if err != nil {
			errs = append(errs, fmt.Errorf("drain outbox: %w", err))
		}
	}

	report.Duration = time.Since(start)
	err := errors.Join(errs...)
	s.metrics.RecordSweep(report.Expired, report.ExpiringSoon, report.Duration, err != nil)
	s.logger.Info("expiry sweep finished",
		zap.Int("expired", report.Expired),
		zap.Int("expiring_soon", report.ExpiringSoon),
		zap.Int("already_handled", report.AlreadyHandled),
		zap.Int("dispatched", report.Dispatched),
		zap.Int("dispatch_failed", report.DispatchFailed),
		zap.Duration("duration", report.Duration),
		zap.Error(err))
	return report, err
}

func (s *ExpiryService) expireOverdue(ctx context.Context, now time.Time, report *SweepReport) error {
	overdue, err := s.tickets.ListOverdue(ctx, now)
	if err != nil {
		return err
	}
	for _, ticket := range overdue {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := events.ToOutbox(events.New(events.EventTicketExpired, ticket.ID, events.TicketExpiredPayload{
			TicketID:  ticket.ID,
			Title:     ticket.Title,
			ExpiresAt: *ticket.ExpiresAt,
		}))
		if err != nil {
			return err
		}
		changed, err := s.tickets.MarkExpired(ctx, ticket.ID, &entry)
		if err != nil {
			s.logger.Error("mark ticket expired", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if !changed {
			report.AlreadyHandled++
			continue
		}
		report.Expired++
		s.logger.Info("ticket expired",
			zap.Int64("ticket_id", ticket.ID),
			zap.Time("expires_at", *ticket.ExpiresAt))
	}
	return nil
}

func (s *ExpiryService) warnExpiringSoon(ctx context.Context, now time.Time, report *SweepReport) error {
	soon, err := s.tickets.ListExpiringSoon(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return err
	}
	for _, ticket := range soon {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := events.ToOutbox(events.New(events.EventTicketExpiringSoon, ticket.ID, expiringSoonPayload(ticket)))
		if err != nil {
			return err
		}
		changed, err := s.tickets.MarkExpiryWarned(ctx, ticket.ID, now, &entry)
		if err != nil {
			s.logger.Error("mark ticket warned", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if !changed {
			report.AlreadyHandled++
			continue
		}
		report.ExpiringSoon++
		s.logger.Info("ticket expiring soon",
			zap.Int64("ticket_id", ticket.ID),
			zap.Time("expires_at", *ticket.ExpiresAt),
			zap.Bool("assigned", ticket.AssignedTo != nil))
	}
	return nil
}

func expiringSoonPayload(ticket domain.Ticket) events.TicketExpiringSoonPayload {
	return events.TicketExpiringSoonPayload{
		TicketID:   ticket.ID,
		Title:      ticket.Title,
		ExpiresAt:  *ticket.ExpiresAt,
		AssignedTo: ticket.AssignedTo,
	}
}
