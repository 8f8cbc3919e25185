package sched

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queueEpoch = time.Unix(0, 0).UTC()

func at(ms int64) time.Time {
	return queueEpoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestScheduleDequeueOrder(t *testing.T) {
	q := newSchedule()
	q.enqueue(at(300), nil)
	q.enqueue(at(100), nil)
	q.enqueue(at(200), nil)

	var got []time.Time
	for {
		entry, ok := q.dequeueEarliest()
		if !ok {
			break
		}
		got = append(got, entry.due)
	}

	require.Len(t, got, 3)
	assert.Equal(t, at(100), got[0])
	assert.Equal(t, at(200), got[1])
	assert.Equal(t, at(300), got[2])
}

func TestScheduleEqualTimesKeepArrivalOrder(t *testing.T) {
	q := newSchedule()
	const n = 100
	for i := 0; i < n; i++ {
		q.enqueue(at(500), nil)
	}

	var prev uint64
	for i := 0; i < n; i++ {
		entry, ok := q.dequeueEarliest()
		require.True(t, ok)
		if i > 0 {
			assert.Greater(t, entry.seq, prev, "equal-time entries must come out first-registered-first")
		}
		prev = entry.seq
	}
}

func TestScheduleRandomizedOrderProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	q := newSchedule()
	for i := 0; i < 500; i++ {
		q.enqueue(at(int64(rng.Intn(20))), nil)
	}

	var prevDue time.Time
	var prevSeq uint64
	first := true
	for {
		entry, ok := q.dequeueEarliest()
		if !ok {
			break
		}
		if !first {
			require.False(t, entry.due.Before(prevDue), "due times must be non-decreasing")
			if entry.due.Equal(prevDue) {
				require.Greater(t, entry.seq, prevSeq)
			}
		}
		prevDue, prevSeq, first = entry.due, entry.seq, false
	}
}

func TestScheduleDequeueBeforeIsExclusive(t *testing.T) {
	q := newSchedule()
	q.enqueue(at(100), nil)
	q.enqueue(at(200), nil)

	entry, ok := q.dequeueBefore(at(200))
	require.True(t, ok)
	assert.Equal(t, at(100), entry.due)

	// An entry due exactly at the threshold stays put.
	_, ok = q.dequeueBefore(at(200))
	assert.False(t, ok)
	assert.Equal(t, 1, q.len())

	entry, ok = q.dequeueBefore(at(201))
	require.True(t, ok)
	assert.Equal(t, at(200), entry.due)
}

func TestScheduleDequeueBeforeLeavesQueueUntouched(t *testing.T) {
	q := newSchedule()
	q.enqueue(at(500), nil)

	_, ok := q.dequeueBefore(at(100))
	assert.False(t, ok)
	assert.Equal(t, 1, q.len())
}

func TestScheduleDequeueEmpty(t *testing.T) {
	q := newSchedule()
	_, ok := q.dequeueEarliest()
	assert.False(t, ok)
	_, ok = q.dequeueBefore(at(100))
	assert.False(t, ok)
}

func TestScheduleTokenRemovesEntry(t *testing.T) {
	q := newSchedule()
	q.enqueue(at(100), nil)
	token := q.enqueue(at(200), nil)
	q.enqueue(at(300), nil)

	token.Close()
	require.Equal(t, 2, q.len())

	entry, _ := q.dequeueEarliest()
	assert.Equal(t, at(100), entry.due)
	entry, _ = q.dequeueEarliest()
	assert.Equal(t, at(300), entry.due)
}

func TestScheduleTokenCloseAfterDequeueIsNoOp(t *testing.T) {
	q := newSchedule()
	token := q.enqueue(at(100), nil)

	_, ok := q.dequeueEarliest()
	require.True(t, ok)

	token.Close() // must not panic or disturb the queue
	token.Close()
	assert.Zero(t, q.len())
}

func TestScheduleSequenceNeverReused(t *testing.T) {
	q := newSchedule()
	q.enqueue(at(100), nil)
	first, _ := q.dequeueEarliest()
	q.enqueue(at(100), nil)
	second, _ := q.dequeueEarliest()

	assert.Greater(t, second.seq, first.seq)
}
