package sched

import (
	"sync"
	"time"

	"rxsched/pkg/closeable"
)

// VirtualScheduler holds a synthetic clock advanced only by draining
// due work, never by waiting. ScheduleAt only enqueues; nothing
// executes until the caller drives the clock with Run or RunTo. The
// clock is monotonic: it never moves backward, even when a running
// action schedules an entry nominally due in the past.
type VirtualScheduler struct {
	core

	mu    sync.Mutex
	clock time.Time
	queue *schedule
}

// NewVirtual creates a virtual scheduler whose clock starts at origin.
func NewVirtual(origin time.Time) *VirtualScheduler {
	s := &VirtualScheduler{clock: origin, queue: newSchedule()}
	s.core = core{self: s}
	return s
}

// Now returns the current synthetic clock value. Repeated calls return
// the same instant until the clock is advanced by a drain.
func (s *VirtualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// ScheduleAt enqueues action for the given virtual instant. It never
// executes synchronously and never blocks.
func (s *VirtualScheduler) ScheduleAt(due time.Time, action Action) closeable.Closeable {
	return s.queue.enqueue(due, action)
}

// ScheduleAfter enqueues action at the current virtual clock plus
// delay.
func (s *VirtualScheduler) ScheduleAfter(delay time.Duration, action Action) closeable.Closeable {
	return s.ScheduleAt(s.Now().Add(delay), action)
}

// Run drains the queue to empty, advancing the clock to each entry's
// due time before executing it. Entries enqueued by running actions are
// drained by the same call.
func (s *VirtualScheduler) Run() {
	for {
		entry, ok := s.queue.dequeueEarliest()
		if !ok {
			return
		}
		s.advanceTo(entry.due)
		entry.action()
	}
}

// RunTo drains entries due strictly before deadline, then leaves the
// clock exactly at deadline. Entries due exactly at deadline remain
// pending.
func (s *VirtualScheduler) RunTo(deadline time.Time) {
	for {
		entry, ok := s.queue.dequeueBefore(deadline)
		if !ok {
			break
		}
		s.advanceTo(entry.due)
		entry.action()
	}
	s.advanceTo(deadline)
}

// Pending returns the number of entries waiting in the queue.
func (s *VirtualScheduler) Pending() int {
	return s.queue.len()
}

// advanceTo moves the clock forward to at, clamping so it never
// regresses.
func (s *VirtualScheduler) advanceTo(at time.Time) {
	s.mu.Lock()
	if at.After(s.clock) {
		s.clock = at
	}
	s.mu.Unlock()
}
