package sched

import (
	"container/heap"
	"sync"
	"time"

	"rxsched/pkg/closeable"
)

// scheduledAction is one pending queue entry. Entries order by due time
// ascending with the insertion sequence as tie-break, so equal-time
// entries run first-registered-first.
type scheduledAction struct {
	due    time.Time
	seq    uint64
	action Action

	// heapIdx is the entry's current position in the heap slice,
	// maintained by actionHeap.Swap so removal by token stays
	// O(log n). -1 once the entry has left the heap.
	heapIdx int
}

// actionHeap is a min-heap of pending entries satisfying heap.Interface.
type actionHeap []*scheduledAction

func (h actionHeap) Len() int { return len(h) }

func (h actionHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq
}

func (h actionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *actionHeap) Push(x any) {
	entry := x.(*scheduledAction)
	entry.heapIdx = len(*h)
	*h = append(*h, entry)
}

func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.heapIdx = -1
	*h = old[:n-1]
	return entry
}

// schedule is the time-ordered queue of pending actions owned by a
// scheduler instance. It is never shared between scheduler instances.
type schedule struct {
	mu      sync.Mutex
	heap    actionHeap
	nextSeq uint64
}

func newSchedule() *schedule {
	return &schedule{}
}

// enqueue inserts an entry due at the given instant and returns a token
// that removes exactly that entry. Closing the token after the entry
// has been dequeued is a no-op.
func (s *schedule) enqueue(due time.Time, action Action) closeable.Closeable {
	s.mu.Lock()
	entry := &scheduledAction{due: due, seq: s.nextSeq, action: action}
	s.nextSeq++
	heap.Push(&s.heap, entry)
	s.mu.Unlock()

	return closeable.Func(func() { s.remove(entry) })
}

// dequeueEarliest removes and returns the earliest pending entry, or
// false if the queue is empty.
func (s *schedule) dequeueEarliest() (*scheduledAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return nil, false
	}
	return heap.Pop(&s.heap).(*scheduledAction), true
}

// dequeueBefore removes and returns the earliest entry due strictly
// before threshold. An entry due exactly at threshold is not returned
// and the queue is left untouched.
func (s *schedule) dequeueBefore(threshold time.Time) (*scheduledAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 || !s.heap[0].due.Before(threshold) {
		return nil, false
	}
	return heap.Pop(&s.heap).(*scheduledAction), true
}

func (s *schedule) remove(entry *scheduledAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.heapIdx < 0 {
		return // already dequeued or removed
	}
	heap.Remove(&s.heap, entry.heapIdx)
}

func (s *schedule) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}
