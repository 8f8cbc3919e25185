package sched

import (
	"time"

	"rxsched/pkg/closeable"
)

// ImmediateScheduler executes actions synchronously on the calling
// goroutine. A positive delay blocks the caller for the delay before
// executing. Returned tokens are always no-ops: by the time the caller
// holds one, the action has already run.
type ImmediateScheduler struct {
	core
}

// NewImmediate creates a synchronous scheduler.
func NewImmediate() *ImmediateScheduler {
	s := &ImmediateScheduler{}
	s.core = core{self: s}
	return s
}

// Now returns a fresh wall-clock sample.
func (s *ImmediateScheduler) Now() time.Time {
	return time.Now()
}

// ScheduleAfter sleeps for delay, if positive, then runs action on the
// calling goroutine.
func (s *ImmediateScheduler) ScheduleAfter(delay time.Duration, action Action) closeable.Closeable {
	if delay > 0 {
		time.Sleep(delay)
	}
	action()
	return closeable.NoOp
}

// ScheduleAt runs action once the wall clock reaches due, blocking the
// caller until then.
func (s *ImmediateScheduler) ScheduleAt(due time.Time, action Action) closeable.Closeable {
	return s.ScheduleAfter(time.Until(due), action)
}
