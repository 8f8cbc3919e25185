package sched

import (
	"time"

	"rxsched/pkg/closeable"
)

// TestScheduler is a virtual scheduler that additionally enforces
// causal strictly-increasing time: a request to schedule at or before
// the current clock is bumped forward to now plus one nanosecond, the
// smallest representable tick. An action scheduled by another action
// therefore never lands at the same instant as its scheduler, which
// makes causal chains observable in a recorded timeline.
//
// TestScheduler composes a VirtualScheduler rather than extending it,
// keeping the forward bump the only behavioral difference.
type TestScheduler struct {
	core

	origin  time.Time
	virtual *VirtualScheduler
}

// testOrigin is the fixed starting instant of every TestScheduler.
var testOrigin = time.Unix(0, 0).UTC()

// Timeline instants of the Record harness, as offsets from the origin.
const (
	createAt           = 100 * time.Nanosecond
	subscribeAt        = 200 * time.Nanosecond
	defaultUnsubscribe = 1000 * time.Nanosecond
)

// NewTest creates a test scheduler with its clock at the fixed origin.
func NewTest() *TestScheduler {
	s := &TestScheduler{origin: testOrigin, virtual: NewVirtual(testOrigin)}
	s.core = core{self: s}
	return s
}

// Now returns the current virtual clock value.
func (s *TestScheduler) Now() time.Time {
	return s.virtual.Now()
}

// Origin returns the fixed instant the clock started at.
func (s *TestScheduler) Origin() time.Time {
	return s.origin
}

// ScheduleAt enqueues action, bumping due forward to now+1ns unless it
// is strictly after the current clock.
func (s *TestScheduler) ScheduleAt(due time.Time, action Action) closeable.Closeable {
	if now := s.virtual.Now(); !due.After(now) {
		due = now.Add(time.Nanosecond)
	}
	return s.virtual.ScheduleAt(due, action)
}

// ScheduleAfter enqueues action at the current clock plus delay,
// subject to the same forward bump.
func (s *TestScheduler) ScheduleAfter(delay time.Duration, action Action) closeable.Closeable {
	return s.ScheduleAt(s.virtual.Now().Add(delay), action)
}

// Run drains the queue to empty.
func (s *TestScheduler) Run() {
	s.virtual.Run()
}

// RunTo drains entries due strictly before deadline and leaves the
// clock at deadline.
func (s *TestScheduler) RunTo(deadline time.Time) {
	s.virtual.RunTo(deadline)
}

// Recorded pairs a virtual timestamp, as an offset from the scheduler
// origin, with an observed value.
type Recorded[T any] struct {
	Time  time.Duration
	Value T
}

// Source is the scheduler-facing boundary of a push-based event
// source: subscribing registers a consumer and yields a token that
// cancels delivery. The scheduler assumes nothing about the shape of
// the events beyond this contract.
type Source[T any] interface {
	Subscribe(consume func(T)) closeable.Closeable
}

// Record drives a source through a fixed create/subscribe/unsubscribe
// timeline on s — creation at 100ns, subscription at 200ns,
// unsubscription at 1000ns past the origin — drains fully, and returns
// the values observed by the subscription with their virtual
// timestamps.
func Record[T any](s *TestScheduler, create func() Source[T]) []Recorded[T] {
	return RecordUntil(s, create, defaultUnsubscribe)
}

// RecordUntil is Record with a caller-chosen unsubscription offset.
func RecordUntil[T any](s *TestScheduler, create func() Source[T], unsubscribeAt time.Duration) []Recorded[T] {
	var (
		recorded []Recorded[T]
		source   Source[T]
		sub      closeable.Closeable
	)
	s.ScheduleAt(s.origin.Add(createAt), func() {
		source = create()
	})
	s.ScheduleAt(s.origin.Add(subscribeAt), func() {
		sub = source.Subscribe(func(v T) {
			recorded = append(recorded, Recorded[T]{Time: s.Now().Sub(s.origin), Value: v})
		})
	})
	s.ScheduleAt(s.origin.Add(unsubscribeAt), func() {
		if sub != nil {
			sub.Close()
		}
	})
	s.Run()
	return recorded
}
