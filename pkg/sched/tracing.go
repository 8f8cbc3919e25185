package sched

import (
	"log/slog"
	"time"

	"rxsched/pkg/closeable"
)

// Tracing wraps another scheduler and logs every scheduling and
// cancellation call without altering scheduling semantics. Each call
// forwards 1:1 to the wrapped scheduler; derived operations are never
// re-derived, so the wrapped strategy's own overrides stay in effect.
type Tracing struct {
	inner Scheduler
	log   *slog.Logger
}

// NewTracing wraps inner so every call is logged to log at debug level.
func NewTracing(inner Scheduler, log *slog.Logger) *Tracing {
	if log == nil {
		log = slog.Default()
	}
	return &Tracing{inner: inner, log: log}
}

// Now forwards to the wrapped scheduler.
func (t *Tracing) Now() time.Time {
	return t.inner.Now()
}

// Schedule forwards to the wrapped scheduler.
func (t *Tracing) Schedule(action Action) closeable.Closeable {
	t.log.Debug("schedule", "op", "schedule")
	return t.token("schedule", t.inner.Schedule(action))
}

// ScheduleAt forwards to the wrapped scheduler.
func (t *Tracing) ScheduleAt(due time.Time, action Action) closeable.Closeable {
	t.log.Debug("schedule", "op", "schedule_at", "due", due)
	return t.token("schedule_at", t.inner.ScheduleAt(due, action))
}

// ScheduleAfter forwards to the wrapped scheduler.
func (t *Tracing) ScheduleAfter(delay time.Duration, action Action) closeable.Closeable {
	t.log.Debug("schedule", "op", "schedule_after", "delay", delay)
	return t.token("schedule_after", t.inner.ScheduleAfter(delay, action))
}

// ScheduleRecursive forwards to the wrapped scheduler.
func (t *Tracing) ScheduleRecursive(action RecursiveAction) closeable.Closeable {
	t.log.Debug("schedule", "op", "schedule_recursive")
	return t.token("schedule_recursive", t.inner.ScheduleRecursive(action))
}

// ScheduleRecursiveAfter forwards to the wrapped scheduler.
func (t *Tracing) ScheduleRecursiveAfter(initialDelay time.Duration, action TimedRecursiveAction) closeable.Closeable {
	t.log.Debug("schedule", "op", "schedule_recursive_after", "initial_delay", initialDelay)
	return t.token("schedule_recursive_after", t.inner.ScheduleRecursiveAfter(initialDelay, action))
}

func (t *Tracing) token(op string, inner closeable.Closeable) closeable.Closeable {
	return closeable.Func(func() {
		t.log.Debug("cancel", "op", op)
		inner.Close()
	})
}
