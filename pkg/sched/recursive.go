package sched

import (
	"time"

	"rxsched/pkg/closeable"
)

// recursion drives one recursive scheduling chain. Each step occupies a
// Serial slot inside the caller-visible composite token; the slot of a
// completed step is removed from the composite before its continuation
// is registered, so the composite tracks exactly the step that is
// currently pending. Closing the composite cancels that step and, via
// the Serial's closed state, suppresses any step registered afterwards.
type recursion struct {
	scheduler Scheduler
	group     *closeable.Composite
}

func scheduleRecursiveAfter(s Scheduler, initialDelay time.Duration, action TimedRecursiveAction) closeable.Closeable {
	r := &recursion{scheduler: s, group: closeable.NewComposite()}
	r.step(initialDelay, action)
	return r.group
}

// step registers the next recursion step after the given delay.
func (r *recursion) step(delay time.Duration, action TimedRecursiveAction) {
	slot := closeable.NewSerial()
	r.group.Add(slot)
	slot.Set(r.scheduler.ScheduleAfter(delay, func() {
		action(func(next time.Duration) {
			// The completed step no longer needs tracking; detach its
			// slot before the continuation takes its place. If the
			// action panics no continuation is ever registered.
			r.group.Remove(slot)
			r.step(next, action)
		})
	}))
}
