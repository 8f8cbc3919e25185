package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsched/internal/history"
	"rxsched/internal/platform/httpclient"
	"rxsched/pkg/pool"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemStore(t *testing.T) *history.SQLiteStore {
	t.Helper()
	store, err := history.NewSQLiteInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunnerRecordsSuccess(t *testing.T) {
	store := newMemStore(t)
	r := NewRunner(quiet(), store, 0)

	r.Wrap(context.Background(), "ok-job", func(ctx context.Context) error {
		return nil
	})()

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ok-job", runs[0].Job)
	assert.Equal(t, history.OutcomeSuccess, runs[0].Outcome)
	assert.Empty(t, runs[0].Error)
}

func TestRunnerRecordsError(t *testing.T) {
	store := newMemStore(t)
	r := NewRunner(quiet(), store, 0)

	r.Wrap(context.Background(), "bad-job", func(ctx context.Context) error {
		return errors.New("boom")
	})()

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.OutcomeError, runs[0].Outcome)
	assert.Equal(t, "boom", runs[0].Error)
}

func TestRunnerRecoversPanic(t *testing.T) {
	store := newMemStore(t)
	r := NewRunner(quiet(), store, 0)

	assert.NotPanics(t, func() {
		r.Wrap(context.Background(), "panicky", func(ctx context.Context) error {
			panic("kaboom")
		})()
	})

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.OutcomePanic, runs[0].Outcome)
	assert.Contains(t, runs[0].Error, "kaboom")
}

func TestRunnerAppliesTimeout(t *testing.T) {
	store := newMemStore(t)
	r := NewRunner(quiet(), store, 20*time.Millisecond)

	r.Wrap(context.Background(), "slow-job", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})()

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.OutcomeError, runs[0].Outcome)
	assert.Contains(t, runs[0].Error, "deadline")
}

func TestRunnerSavesAfterContextCancelled(t *testing.T) {
	store := newMemStore(t)
	r := NewRunner(quiet(), store, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Wrap(ctx, "shutdown-job", func(ctx context.Context) error {
		return ctx.Err()
	})()

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestHeartbeatJob(t *testing.T) {
	p := pool.New(pool.Config{Workers: 1, Logger: quiet()})
	p.Start()
	defer p.Stop()

	err := heartbeatJob(quiet(), p)(context.Background())
	assert.NoError(t, err)
}

func TestProbeJobSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.WithLogger(quiet()))
	err := probeJob(client, srv.URL)(context.Background())
	assert.NoError(t, err)
}

func TestProbeJobRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.WithLogger(quiet()))
	err := probeJob(client, srv.URL)(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPruneJob(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	old := history.Run{
		Job:     "heartbeat",
		Due:     time.Now().UTC().Add(-48 * time.Hour),
		Started: time.Now().UTC().Add(-48 * time.Hour),
		Outcome: history.OutcomeSuccess,
	}
	_, err := store.Save(ctx, old)
	require.NoError(t, err)

	fresh := old
	fresh.Started = time.Now().UTC()
	_, err = store.Save(ctx, fresh)
	require.NoError(t, err)

	err = pruneJob(quiet(), store, 24*time.Hour)(ctx)
	require.NoError(t, err)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
