package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

type countingSweeper struct {
	calls atomic.Int32
	block chan struct{}
}

func (s *countingSweeper) Sweep(context.Context) (service.SweepReport, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return service.SweepReport{Expired: 1}, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, true, nil
}

func newScheduler(sweeper Sweeper, locker Locker, metrics *observability.Metrics) *SweepScheduler {
	return NewSweepScheduler(sweeper, locker, SweepSchedulerConfig{Interval: time.Hour, LockKey: "sweep"}, metrics, zap.NewNop())
}

func TestRunOnceTakesAndReleasesLock(t *testing.T) {
	sweeper := &countingSweeper{}
	locker := &fakeLocker{}
	report, ran, err := newScheduler(sweeper, locker, nil).RunOnce(context.Background())
	if err != nil || !ran || report.Expired != 1 {
		t.Fatalf("RunOnce = %+v, %v, %v", report, ran, err)
	}
	if locker.released != 1 || locker.held {
		t.Errorf("lock not released: %+v", locker)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	sweeper := &countingSweeper{}
	metrics := observability.NewMetrics()
	locker := &fakeLocker{held: true}
	_, ran, err := newScheduler(sweeper, locker, metrics).RunOnce(context.Background())
	if err != nil || ran {
		t.Fatalf("RunOnce ran = %v, err = %v; want skipped", ran, err)
	}
	if sweeper.calls.Load() != 0 {
		t.Error("sweeper called while lock held")
	}
	if metrics.Snapshot().Sweep.Skipped != 1 {
		t.Error("skip not counted")
	}
}

func TestRunOnceProceedsWhenLockBackendDown(t *testing.T) {
	sweeper := &countingSweeper{}
	locker := &fakeLocker{err: errors.New("connection refused")}
	if _, ran, err := newScheduler(sweeper, locker, nil).RunOnce(context.Background()); err != nil || !ran {
		t.Fatalf("RunOnce ran = %v, err = %v; want ran", ran, err)
	}
	if sweeper.calls.Load() != 1 {
		t.Errorf("sweeper calls = %d, want 1", sweeper.calls.Load())
	}
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	sweeper := &countingSweeper{block: make(chan struct{})}
	sched := newScheduler(sweeper, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.RunOnce(context.Background())
	}()
	for sweeper.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	if _, ran, _ := sched.RunOnce(context.Background()); ran {
		t.Error("second run started while first in flight")
	}
	close(sweeper.block)
	<-done
	if sweeper.calls.Load() != 1 {
		t.Errorf("sweeper calls = %d, want 1", sweeper.calls.Load())
	}
}

type countingDrainer struct{ calls atomic.Int32 }

func (d *countingDrainer) Drain(context.Context) (repository.DrainResult, error) {
	d.calls.Add(1)
	return repository.DrainResult{Dispatched: 1}, nil
}

func TestOutboxWorkerStopsWithContext(t *testing.T) {
	drainer := &countingDrainer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewOutboxWorker(drainer, 5*time.Millisecond, zap.NewNop()).Run(ctx)
	}()
	deadline := time.After(2 * time.Second)
	for drainer.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker never drained")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done
}
