package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsched/internal/platform/sqlite"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tdb := sqlite.NewTestDBInMemory(t)
	tdb.ApplyTestMigrations(t, migrationsFS, "migrations/sqlite")
	return NewSQLiteWithDB(tdb.DB)
}

func sampleRun(job string, started time.Time) Run {
	return Run{
		Job:      job,
		Due:      started.Add(-5 * time.Millisecond),
		Started:  started,
		Duration: 42 * time.Millisecond,
		Outcome:  OutcomeSuccess,
	}
}

func TestSQLiteStoreSaveAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	id1, err := store.Save(ctx, sampleRun("heartbeat", base))
	require.NoError(t, err)
	id2, err := store.Save(ctx, sampleRun("probe", base.Add(time.Minute)))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "probe", runs[0].Job)
	assert.Equal(t, "heartbeat", runs[1].Job)
	assert.Equal(t, base, runs[1].Started)
	assert.Equal(t, base.Add(-5*time.Millisecond), runs[1].Due)
	assert.Equal(t, 42*time.Millisecond, runs[1].Duration)
	assert.Equal(t, OutcomeSuccess, runs[1].Outcome)
}

func TestSQLiteStoreRecentHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := store.Save(ctx, sampleRun("job", base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	runs, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	assert.Equal(t, base.Add(4*time.Second), runs[0].Started)
}

func TestSQLiteStoreSavesErrorDetails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("probe", time.Now().UTC().Truncate(time.Microsecond))
	run.Outcome = OutcomeError
	run.Error = "unexpected status 503"
	_, err := store.Save(ctx, run)
	require.NoError(t, err)

	runs, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeError, runs[0].Outcome)
	assert.Equal(t, "unexpected status 503", runs[0].Error)
}

func TestSQLiteStoreCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	outcomes := []Outcome{OutcomeSuccess, OutcomeSuccess, OutcomeError, OutcomePanic}
	for i, o := range outcomes {
		run := sampleRun("job", base.Add(time.Duration(i)*time.Second))
		run.Outcome = o
		_, err := store.Save(ctx, run)
		require.NoError(t, err)
	}

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[OutcomeSuccess])
	assert.Equal(t, int64(1), counts[OutcomeError])
	assert.Equal(t, int64(1), counts[OutcomePanic])
}

func TestSQLiteStorePrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := store.Save(ctx, sampleRun("job", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	// Cutoff lands between the second and third run.
	pruned, err := store.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteStoreRecentEmpty(t *testing.T) {
	store := newTestStore(t)

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
