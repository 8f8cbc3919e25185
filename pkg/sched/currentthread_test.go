package sched_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsched/pkg/sched"
)

func TestCurrentThreadRunsInitialActionBeforeReturning(t *testing.T) {
	s := sched.NewCurrentThread()

	ran := false
	s.Schedule(func() { ran = true })

	assert.True(t, ran)
}

func TestCurrentThreadDefersReentrantScheduling(t *testing.T) {
	s := sched.NewCurrentThread()

	var order []string
	s.Schedule(func() {
		order = append(order, "outer-start")
		s.Schedule(func() { order = append(order, "inner") })
		// The inner action must not run until the outer one returns.
		order = append(order, "outer-end")
	})

	assert.Equal(t, []string{"outer-start", "outer-end", "inner"}, order)
}

func TestCurrentThreadSiblingsRunInDueTimeOrder(t *testing.T) {
	s := sched.NewCurrentThread()

	var order []string
	s.Schedule(func() {
		s.ScheduleAfter(10*time.Millisecond, func() { order = append(order, "late") })
		s.ScheduleAfter(2*time.Millisecond, func() { order = append(order, "early") })
	})

	assert.Equal(t, []string{"early", "late"}, order)
}

func TestCurrentThreadCancelQueuedSibling(t *testing.T) {
	s := sched.NewCurrentThread()

	count := 0
	s.Schedule(func() {
		token := s.Schedule(func() { count++ })
		token.Close()
		s.Schedule(func() { count += 10 })
	})

	assert.Equal(t, 10, count)
}

func TestCurrentThreadQueueTornDownBetweenOutermostCalls(t *testing.T) {
	s := sched.NewCurrentThread()

	var first, second []int
	s.Schedule(func() {
		s.Schedule(func() { first = append(first, 1) })
	})
	// A fresh outermost call gets a fresh queue; nothing from the
	// previous activation may leak in.
	s.Schedule(func() { second = append(second, 2) })

	assert.Equal(t, []int{1}, first)
	assert.Equal(t, []int{2}, second)
}

func TestCurrentThreadQueueTornDownAfterPanic(t *testing.T) {
	s := sched.NewCurrentThread()

	func() {
		defer func() { _ = recover() }()
		s.Schedule(func() { panic("boom") })
	}()

	// The queue must have been torn down so later calls start fresh.
	ran := false
	s.Schedule(func() { ran = true })
	assert.True(t, ran)
}

func TestCurrentThreadIndependentGoroutines(t *testing.T) {
	s := sched.NewCurrentThread()

	var mu sync.Mutex
	perGoroutine := make(map[int][]int)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Schedule(func() {
				for i := 0; i < 3; i++ {
					i := i
					s.Schedule(func() {
						mu.Lock()
						perGoroutine[g] = append(perGoroutine[g], i)
						mu.Unlock()
					})
				}
			})
		}()
	}
	wg.Wait()

	require.Len(t, perGoroutine, 4)
	for g, got := range perGoroutine {
		assert.Equal(t, []int{0, 1, 2}, got, "goroutine %d must keep its own order", g)
	}
}

func TestCurrentThreadRecursive(t *testing.T) {
	s := sched.NewCurrentThread()

	count := 0
	s.ScheduleRecursive(func(self func()) {
		count++
		if count < 5 {
			self()
		}
	})

	assert.Equal(t, 5, count)
}
