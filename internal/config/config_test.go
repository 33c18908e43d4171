package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "")
	t.Setenv("SWEEP_LOOKAHEAD_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.DSN != "" {
		t.Errorf("DSN = %q, want empty", cfg.Postgres.DSN)
	}
	if got := cfg.Sweep.Interval(); got != time.Minute {
		t.Errorf("Interval = %v, want 1m", got)
	}
	if got := cfg.Sweep.Lookahead(); got != time.Hour {
		t.Errorf("Lookahead = %v, want 1h", got)
	}
	if cfg.Outbox.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.Outbox.BatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_SECONDS", "15")
	t.Setenv("SWEEP_LOOKAHEAD_MINUTES", "30")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("SWEEP_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Sweep.Interval(); got != 15*time.Second {
		t.Errorf("Interval = %v, want 15s", got)
	}
	if got := cfg.Sweep.Lookahead(); got != 30*time.Minute {
		t.Errorf("Lookahead = %v, want 30m", got)
	}
	if cfg.Outbox.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want fallback 5", cfg.Outbox.MaxAttempts)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false")
	}
	if cfg.Sweep.Enabled {
		t.Error("Sweep.Enabled = true, want false")
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with REDIS_DB=zero")
	}
}

func TestSweepLockTTLFallsBackToInterval(t *testing.T) {
	s := SweepConfig{IntervalSeconds: 20}
	if got := s.LockTTL(); got != 20*time.Second {
		t.Errorf("LockTTL = %v, want 20s", got)
	}
}
