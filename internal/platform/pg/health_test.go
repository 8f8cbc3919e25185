package pg

import (
	"context"
	"testing"
	"time"

	"rxsched/pkg/retry"
)

func TestDefaultWaitConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultWaitConfig()

	if cfg.MaxAttempts != 10 {
		t.Errorf("expected MaxAttempts=10, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != time.Second {
		t.Errorf("expected InitialDelay=1s, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("expected MaxDelay=30s, got %v", cfg.MaxDelay)
	}
}

func TestWaitForDBHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForDB(ctx, "postgres://u@127.0.0.1:1/db?sslmode=disable", DefaultWaitConfig())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestWaitForDBGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	cfg := retry.Config{
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Port 1 is never a PostgreSQL server.
	err := WaitForDB(ctx, "postgres://u@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", cfg)
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
}

func TestHealthCheckPoolNil(t *testing.T) {
	t.Parallel()

	if err := HealthCheckPool(context.Background(), nil); err == nil {
		t.Error("expected error for nil pool")
	}
}
