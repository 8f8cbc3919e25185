package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rxsched/pkg/retry"
)

// DefaultWaitConfig returns the backoff policy used when waiting for
// the database to come up: ten attempts, one second doubling to thirty.
func DefaultWaitConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    10,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterStrategy: retry.JitterEqual,
	}
}

// WaitForDB blocks until the database answers a ping or the policy is
// exhausted. Any ping failure counts as retryable here; a database
// that is still starting up produces refused connections and auth
// errors interchangeably.
func WaitForDB(ctx context.Context, dsn string, cfg retry.Config) error {
	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		return pingDatabase(ctx, dsn, 5*time.Second)
	}, retry.AlwaysRetryable)
	if err != nil {
		return fmt.Errorf("database not available: %w", err)
	}
	return nil
}

// HealthCheckPool verifies that an existing pool can serve queries.
func HealthCheckPool(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pool ping failed: %w", err)
	}

	var result int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("probe query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected probe result: got %d, want 1", result)
	}
	return nil
}

// pingDatabase opens a throwaway pool and pings it.
func pingDatabase(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
