package history

import (
	"context"
	"database/sql"
	"time"

	"rxsched/internal/platform/sqlite"
	"rxsched/internal/shared"
)

// SQLiteStore keeps run history in an embedded SQLite database.
// Timestamps are stored as integer nanoseconds since the Unix epoch,
// which keeps them driver-independent and sortable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies
// pending migrations.
func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, shared.Wrap(err, "open history database")
	}
	if err := sqlite.ApplyMigrations(db, migrationsFS, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, shared.Wrap(err, "migrate history database")
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteWithDB wraps an existing handle. The schema must already be
// migrated; tests use this with an in-memory database.
func NewSQLiteWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// NewSQLiteInMemory creates a fully migrated in-memory store. Nothing
// survives Close; intended for tests and local experiments.
func NewSQLiteInMemory(ctx context.Context) (*SQLiteStore, error) {
	db, err := sqlite.NewInMemoryDB(ctx)
	if err != nil {
		return nil, shared.Wrap(err, "open in-memory history database")
	}
	if err := sqlite.ApplyMigrations(db, migrationsFS, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, shared.Wrap(err, "migrate in-memory history database")
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (job, due_at_ns, started_ns, duration_ns, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Job, run.Due.UnixNano(), run.Started.UnixNano(),
		int64(run.Duration), string(run.Outcome), run.Error,
	)
	if err != nil {
		return 0, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return id, nil
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job, due_at_ns, started_ns, duration_ns, outcome, error
		 FROM runs ORDER BY started_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			dueNS, startNS, ns int64
			outcome            string
		)
		if err := rows.Scan(&r.ID, &r.Job, &dueNS, &startNS, &ns, &outcome, &r.Error); err != nil {
			return nil, shared.MarkKind(err, shared.KindDependencyFailure)
		}
		r.Due = time.Unix(0, dueNS).UTC()
		r.Started = time.Unix(0, startNS).UTC()
		r.Duration = time.Duration(ns)
		r.Outcome = Outcome(outcome)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return runs, nil
}

// Counts implements Store.
func (s *SQLiteStore) Counts(ctx context.Context) (map[Outcome]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM runs GROUP BY outcome`)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	defer rows.Close()

	counts := make(map[Outcome]int64)
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, shared.MarkKind(err, shared.KindDependencyFailure)
		}
		counts[Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return counts, nil
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE started_ns < ?`, olderThan.UnixNano())
	if err != nil {
		return 0, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
