// Package sched provides a unified time-based scheduling abstraction
// with interchangeable execution strategies: synchronous immediate
// execution, goroutine-confined deferred execution, pooled asynchronous
// execution, and a deterministic virtual-time mode for tests.
//
// Every strategy reduces scheduling to a single primitive — run this
// action at this instant — and derives the richer operations (delays,
// recursive timers) from it, so callers program against one contract
// regardless of where and when the work actually runs. Pending work is
// cancelled by closing the token returned at scheduling time; see
// package closeable.
package sched

import (
	"time"

	"rxsched/pkg/closeable"
)

// Action is a deferred, argumentless unit of work.
type Action func()

// RecursiveAction receives a continue callback; invoking it schedules
// the next step of the recursion.
type RecursiveAction func(self func())

// TimedRecursiveAction receives a continue callback parameterized by
// the delay before the next step.
type TimedRecursiveAction func(self func(delay time.Duration))

// Scheduler is the public scheduling contract shared by all execution
// strategies.
//
// Now may return a fresh wall-clock sample on every call or a stable
// synthetic value, depending on the strategy; callers must not assume
// repeated calls return the same instant except for virtual schedulers.
type Scheduler interface {
	// Now returns the scheduler's current notion of time.
	Now() time.Time

	// Schedule requests action to run as soon as the strategy allows.
	Schedule(action Action) closeable.Closeable

	// ScheduleAt requests action to run at the given instant.
	ScheduleAt(due time.Time, action Action) closeable.Closeable

	// ScheduleAfter requests action to run once the given delay has
	// elapsed. Non-positive delays are equivalent to Schedule.
	ScheduleAfter(delay time.Duration, action Action) closeable.Closeable

	// ScheduleRecursive schedules action and hands it a callback that
	// schedules the next step. The returned token tracks whichever
	// step is currently pending; closing it stops the recursion.
	ScheduleRecursive(action RecursiveAction) closeable.Closeable

	// ScheduleRecursiveAfter is ScheduleRecursive with an initial
	// delay and per-step delays chosen by the action itself.
	ScheduleRecursiveAfter(initialDelay time.Duration, action TimedRecursiveAction) closeable.Closeable
}

// core supplies the strategy-independent operations. Each concrete
// scheduler embeds core and points self at itself, so the derived
// operations dispatch through the strategy's own primitive (including
// any overrides, such as the test scheduler's forward time bump).
type core struct {
	self Scheduler
}

func (c core) Schedule(action Action) closeable.Closeable {
	return c.self.ScheduleAt(c.self.Now(), action)
}

func (c core) ScheduleRecursive(action RecursiveAction) closeable.Closeable {
	return scheduleRecursiveAfter(c.self, 0, func(self func(time.Duration)) {
		action(func() { self(0) })
	})
}

func (c core) ScheduleRecursiveAfter(initialDelay time.Duration, action TimedRecursiveAction) closeable.Closeable {
	return scheduleRecursiveAfter(c.self, initialDelay, action)
}
