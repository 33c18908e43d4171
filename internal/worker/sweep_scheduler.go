package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Locker grants a short-lived exclusive lease across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Sweeper runs one expiry sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

// SweepScheduler runs the expiry sweep on a fixed interval. Ticks that
// arrive while a sweep is in flight, or while another process holds the
// lock, are skipped.
type SweepScheduler struct {
	sweeper  Sweeper
	locker   Locker
	lockKey  string
	lockTTL  time.Duration
	interval time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
	running  atomic.Bool
}

// SweepSchedulerConfig bundles scheduler settings.
type SweepSchedulerConfig struct {
	Interval time.Duration
	LockKey  string
	LockTTL  time.Duration
}

// NewSweepScheduler builds a scheduler. locker may be nil for single-process
// deployments.
func NewSweepScheduler(sweeper Sweeper, locker Locker, cfg SweepSchedulerConfig, metrics *observability.Metrics, logger *zap.Logger) *SweepScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	return &SweepScheduler{
		sweeper:  sweeper,
		locker:   locker,
		lockKey:  cfg.LockKey,
		lockTTL:  cfg.LockTTL,
		interval: cfg.Interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *SweepScheduler) Run(ctx context.Context) {
	s.logger.Info("expiry scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SweepScheduler) tick(ctx context.Context) {
	if _, _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
	}
}

// RunOnce performs a single guarded sweep. ran is false when the sweep was
// skipped.
func (s *SweepScheduler) RunOnce(ctx context.Context) (service.SweepReport, bool, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("sweep still in flight, skipping tick")
		s.metrics.RecordSweepSkipped()
		return service.SweepReport{}, false, nil
	}
	defer s.running.Store(false)

	release, ok := s.acquire(ctx)
	if !ok {
		s.metrics.RecordSweepSkipped()
		return service.SweepReport{}, false, nil
	}
	if release != nil {
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := release(releaseCtx); err != nil {
				s.logger.Warn("release sweep lock", zap.Error(err))
			}
		}()
	}

	report, err := s.sweeper.Sweep(ctx)
	return report, true, err
}

// acquire takes the distributed lock. An unreachable lock backend does not
// block the sweep; the conditional writes keep a concurrent run harmless.
func (s *SweepScheduler) acquire(ctx context.Context) (func(context.Context) error, bool) {
	if s.locker == nil || s.lockKey == "" {
		return nil, true
	}
	release, ok, err := s.locker.TryLock(ctx, s.lockKey, s.lockTTL)
	if err != nil {
		s.logger.Warn("sweep lock unavailable, running unguarded", zap.Error(err))
		return nil, true
	}
	if !ok {
		s.logger.Debug("sweep lock held elsewhere, skipping tick", zap.String("key", s.lockKey))
		return nil, false
	}
	return release, true
}
