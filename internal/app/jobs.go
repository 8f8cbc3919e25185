package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rxsched/internal/history"
	"rxsched/internal/platform/httpclient"
	"rxsched/pkg/pool"
	"rxsched/pkg/retry"
)

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// Runner executes jobs with panic recovery and a per-job timeout, and
// records every run in the history store.
type Runner struct {
	log     *slog.Logger
	store   history.Store
	timeout time.Duration
}

// NewRunner creates a Runner. A non-positive timeout disables the
// per-job deadline.
func NewRunner(log *slog.Logger, store history.Store, timeout time.Duration) *Runner {
	return &Runner{log: log, store: store, timeout: timeout}
}

// Wrap turns a job into a plain action suitable for scheduling. The
// given context bounds the job's work and is typically the process
// lifetime context.
func (r *Runner) Wrap(ctx context.Context, name string, job JobFunc) func() {
	return func() {
		r.run(ctx, name, job)
	}
}

func (r *Runner) run(ctx context.Context, name string, job JobFunc) {
	due := time.Now().UTC()
	start := time.Now().UTC()

	outcome := history.OutcomeSuccess
	var jobErr error

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				outcome = history.OutcomePanic
				jobErr = fmt.Errorf("panic: %v", rec)
				r.log.Error("job panicked", slog.String("name", name), slog.Any("panic", rec))
			}
		}()

		jctx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			jctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		jobErr = job(jctx)
	}()

	duration := time.Since(start)

	if outcome != history.OutcomePanic {
		if jobErr != nil {
			outcome = history.OutcomeError
			r.log.Error("job failed",
				slog.String("name", name), slog.Any("error", jobErr),
				slog.Duration("duration", duration))
		} else {
			r.log.Debug("job completed",
				slog.String("name", name), slog.Duration("duration", duration))
		}
	}

	run := history.Run{
		Job:      name,
		Due:      due,
		Started:  start,
		Duration: duration,
		Outcome:  outcome,
	}
	if jobErr != nil {
		run.Error = jobErr.Error()
	}

	// Record even when the process context is already cancelled, so
	// the last runs before shutdown are not lost.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := r.store.Save(saveCtx, run); err != nil {
		r.log.Warn("save run history", slog.String("name", name), slog.Any("error", err))
	}
}

// heartbeatJob logs a liveness line with a pool snapshot.
func heartbeatJob(log *slog.Logger, p *pool.Pool) JobFunc {
	return func(ctx context.Context) error {
		s := p.Stats()
		log.Info("heartbeat",
			slog.Int("pending", s.Pending),
			slog.Uint64("executed", s.Executed),
			slog.Uint64("cancelled", s.Cancelled),
		)
		return nil
	}
}

// probeJob checks that an HTTP endpoint answers 2xx, retrying
// transient failures within the job's deadline.
func probeJob(client *httpclient.Client, url string) JobFunc {
	return func(ctx context.Context) error {
		return retry.DoWithRetryable(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			return client.Check(ctx, url)
		}, retry.AlwaysRetryable)
	}
}

// pruneJob deletes run records older than the retention window.
func pruneJob(log *slog.Logger, store history.Store, retention time.Duration) JobFunc {
	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().Add(-retention)
		removed, err := store.Prune(ctx, cutoff)
		if err != nil {
			return err
		}
		log.Info("history pruned",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff),
		)
		return nil
	}
}
