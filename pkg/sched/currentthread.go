package sched

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"

	"rxsched/pkg/closeable"
)

// CurrentThreadScheduler defers re-entrant scheduling requests into a
// queue confined to the calling goroutine. The first call on a
// goroutine creates the queue, enqueues the action, and drains the
// queue in due-time/arrival order before returning; actions scheduled
// from inside a draining action are enqueued into the same queue and
// run strictly after the current action and its already-queued siblings
// finish. Calls from unrelated goroutines use independent queues.
type CurrentThreadScheduler struct {
	core

	mu     sync.Mutex
	queues map[uint64]*schedule
}

// NewCurrentThread creates a goroutine-confined scheduler.
func NewCurrentThread() *CurrentThreadScheduler {
	s := &CurrentThreadScheduler{queues: make(map[uint64]*schedule)}
	s.core = core{self: s}
	return s
}

// Now returns a fresh wall-clock sample.
func (s *CurrentThreadScheduler) Now() time.Time {
	return time.Now()
}

// ScheduleAfter requests action to run once delay has elapsed.
func (s *CurrentThreadScheduler) ScheduleAfter(delay time.Duration, action Action) closeable.Closeable {
	return s.ScheduleAt(time.Now().Add(delay), action)
}

// ScheduleAt enqueues action for the calling goroutine's queue. If the
// queue already exists the call merely enqueues and returns: the caller
// is itself running inside the drain loop below, which will pick the
// entry up. Otherwise the queue is created, the action enqueued, and
// the queue drained to empty before the queue is torn down. Teardown is
// guaranteed even if an action panics.
func (s *CurrentThreadScheduler) ScheduleAt(due time.Time, action Action) closeable.Closeable {
	id := goroutineID()

	s.mu.Lock()
	queue, active := s.queues[id]
	if active {
		s.mu.Unlock()
		return queue.enqueue(due, action)
	}
	queue = newSchedule()
	s.queues[id] = queue
	s.mu.Unlock()

	token := queue.enqueue(due, action)

	defer func() {
		s.mu.Lock()
		delete(s.queues, id)
		s.mu.Unlock()
	}()
	drain(queue)

	return token
}

// drain pops and runs entries until the queue is empty, sleeping out
// any remaining delay before each entry.
func drain(queue *schedule) {
	for {
		entry, ok := queue.dequeueEarliest()
		if !ok {
			return
		}
		if wait := time.Until(entry.due); wait > 0 {
			time.Sleep(wait)
		}
		entry.action()
	}
}

// goroutineID extracts the numeric id of the calling goroutine from its
// stack header ("goroutine N [running]: ..."). The runtime exposes no
// cheaper stable identity for the executing goroutine.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
