package sched

import (
	"time"

	"rxsched/pkg/closeable"
)

// Executor is the delayed-execution service the pool strategy delegates
// to. ExecuteAfter arranges for f to run on some worker once delay has
// elapsed and returns a cancel function; cancel reports whether the run
// was prevented. Cancellation is best-effort: once f has started it
// runs to completion.
//
// The executor owns its internal queue and worker set; the scheduler
// treats it as opaque and makes no ordering guarantee between two
// pool-scheduled actions beyond what the executor provides.
type Executor interface {
	ExecuteAfter(delay time.Duration, f func()) (cancel func() bool)
}

// PoolScheduler delegates to a shared pool of worker goroutines with
// native delayed-execution support. Actions may run in parallel on
// distinct workers.
type PoolScheduler struct {
	core
	exec Executor
}

// NewPool creates a pooled scheduler backed by exec. A nil exec falls
// back to runtime timers, which spawn one goroutine per due action.
func NewPool(exec Executor) *PoolScheduler {
	s := &PoolScheduler{exec: exec}
	s.core = core{self: s}
	return s
}

// Now returns a fresh wall-clock sample.
func (s *PoolScheduler) Now() time.Time {
	return time.Now()
}

// ScheduleAfter submits action for execution after delay on a pool
// worker. Closing the returned token before the action starts removes
// it from the pending work; afterwards closing is a no-op and the
// action runs to completion.
func (s *PoolScheduler) ScheduleAfter(delay time.Duration, action Action) closeable.Closeable {
	if delay < 0 {
		delay = 0
	}
	if s.exec == nil {
		timer := time.AfterFunc(delay, action)
		return closeable.Func(func() { timer.Stop() })
	}
	cancel := s.exec.ExecuteAfter(delay, action)
	return closeable.Func(func() { cancel() })
}

// ScheduleAt submits action for execution when the wall clock reaches
// due.
func (s *PoolScheduler) ScheduleAt(due time.Time, action Action) closeable.Closeable {
	return s.ScheduleAfter(time.Until(due), action)
}
