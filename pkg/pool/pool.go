// Package pool provides a process-wide pool of daemon worker goroutines
// with native delayed-execution support. It is the external execution
// service consumed by the pooled scheduler strategy: the scheduler only
// uses ExecuteAfter and the returned cancel function, never the pool's
// construction or lifecycle.
//
// One dispatcher goroutine keeps pending submissions in a min-heap
// keyed by due time and sleeps until the earliest one is due; a
// buffered wake channel lets a new submission interrupt the sleep when
// it is due sooner than the current heap root. Due work is handed to a
// fixed set of workers over a shared channel.
package pool

import (
	"container/heap"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Entry execution states. Cancellation succeeds only while the entry is
// still pending; once a worker has claimed it, the run completes.
const (
	statePending int32 = iota
	stateRunning
	stateCancelled
)

type entry struct {
	due     time.Time
	seq     uint64
	f       func()
	state   atomic.Int32
	heapIdx int // position in the dispatcher heap, -1 once popped
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.heapIdx = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIdx = -1
	*h = old[:n-1]
	return e
}

// Config holds pool construction parameters.
type Config struct {
	// Workers is the number of worker goroutines. Defaults to the
	// available parallelism.
	Workers int
	// QueueSize is the buffer of the shared work channel. Defaults
	// to 64.
	QueueSize int
	// Logger receives pool lifecycle and panic logs. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers   int    `json:"workers"`
	Pending   int    `json:"pending"`
	Submitted uint64 `json:"submitted"`
	Executed  uint64 `json:"executed"`
	Cancelled uint64 `json:"cancelled"`
	Panicked  uint64 `json:"panicked"`
}

// Pool schedules submitted functions for delayed execution on a fixed
// set of worker goroutines.
type Pool struct {
	workers int
	log     *slog.Logger

	mu      sync.Mutex
	pending entryHeap
	nextSeq uint64
	stopped bool

	work chan *entry
	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	submitted atomic.Uint64
	executed  atomic.Uint64
	cancelled atomic.Uint64
	panicked  atomic.Uint64
}

// New creates a pool with the given configuration. The pool is idle
// until Start is called.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		workers: workers,
		log:     log,
		work:    make(chan *entry, queueSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the dispatcher and worker goroutines. It is safe to
// call more than once; only the first call has an effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.log.Info("pool starting", "workers", p.workers)
		p.wg.Add(1)
		go p.dispatch()
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Stop drains the dispatcher, discards timers that are not yet due, and
// waits for in-flight work to finish. Safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		dropped := len(p.pending)
		p.pending = nil
		p.mu.Unlock()

		close(p.done)
		p.wg.Wait()
		p.log.Info("pool stopped", "dropped", dropped)
	})
}

// ExecuteAfter arranges for f to run on a worker once delay has
// elapsed. The returned cancel function removes the submission if it
// has not started yet and reports whether the run was prevented.
// Submissions after Stop are dropped; their cancel always reports
// false.
func (p *Pool) ExecuteAfter(delay time.Duration, f func()) func() bool {
	if delay < 0 {
		delay = 0
	}

	e := &entry{due: time.Now().Add(delay), f: f}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.log.Warn("submission after stop dropped")
		return func() bool { return false }
	}
	e.seq = p.nextSeq
	p.nextSeq++
	heap.Push(&p.pending, e)
	p.mu.Unlock()

	p.submitted.Add(1)
	p.notify()

	return func() bool { return p.cancel(e) }
}

// Stats returns a snapshot of current pool activity.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	pending := len(p.pending)
	p.mu.Unlock()
	return Stats{
		Workers:   p.workers,
		Pending:   pending,
		Submitted: p.submitted.Load(),
		Executed:  p.executed.Load(),
		Cancelled: p.cancelled.Load(),
		Panicked:  p.panicked.Load(),
	}
}

func (p *Pool) cancel(e *entry) bool {
	if !e.state.CompareAndSwap(statePending, stateCancelled) {
		return false // already running or already cancelled
	}
	p.cancelled.Add(1)

	p.mu.Lock()
	if e.heapIdx >= 0 {
		heap.Remove(&p.pending, e.heapIdx)
	}
	p.mu.Unlock()
	return true
}

// notify nudges the dispatcher so it re-arms its sleep against the new
// heap root. The channel is buffered with capacity 1; a pending nudge
// already covers this submission.
func (p *Pool) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// dispatch moves due entries from the heap to the work channel,
// sleeping until the earliest pending entry is due.
func (p *Pool) dispatch() {
	defer p.wg.Done()
	defer close(p.work)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var wait time.Duration = -1
		for {
			p.mu.Lock()
			if len(p.pending) == 0 {
				p.mu.Unlock()
				break
			}
			root := p.pending[0]
			now := time.Now()
			if root.due.After(now) {
				wait = root.due.Sub(now)
				p.mu.Unlock()
				break
			}
			heap.Pop(&p.pending)
			p.mu.Unlock()

			select {
			case p.work <- root:
			case <-p.done:
				return
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if wait >= 0 {
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-p.wake:
			case <-p.done:
				return
			}
		} else {
			select {
			case <-p.wake:
			case <-p.done:
				return
			}
		}
	}
}

// worker claims entries off the shared channel and runs them. A panic
// in submitted work is logged and counted; it never takes the worker
// down with it.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for e := range p.work {
		if !e.state.CompareAndSwap(statePending, stateRunning) {
			continue // cancelled between dispatch and claim
		}
		p.run(id, e)
	}
}

func (p *Pool) run(id int, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.log.Error("worker recovered from panic", "worker", id, "panic", r)
		}
	}()
	e.f()
	p.executed.Add(1)
}
