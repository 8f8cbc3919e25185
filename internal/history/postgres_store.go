package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rxsched/internal/platform/pg"
	"rxsched/internal/shared"
)

// PostgresStore keeps run history in PostgreSQL, for deployments where
// several instances share one history.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres waits for the database, applies pending migrations, and
// opens a connection pool.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := pg.WaitForDB(ctx, dsn, pg.DefaultWaitConfig()); err != nil {
		return nil, shared.Wrap(err, "wait for history database")
	}
	if _, err := pg.ApplyMigrations(dsn, migrationsFS, "migrations/postgres"); err != nil {
		return nil, shared.Wrap(err, "migrate history database")
	}
	pool, err := pg.NewPool(ctx, dsn)
	if err != nil {
		return nil, shared.Wrap(err, "open history pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. The schema must already
// be migrated.
func NewPostgresWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, run Run) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO runs (job, due_at, started_at, duration_ns, outcome, error)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		run.Job, run.Due, run.Started, int64(run.Duration), string(run.Outcome), run.Error,
	).Scan(&id)
	if err != nil {
		return 0, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return id, nil
}

// Recent implements Store.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, job, due_at, started_at, duration_ns, outcome, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			ns      int64
			outcome string
		)
		if err := rows.Scan(&r.ID, &r.Job, &r.Due, &r.Started, &ns, &outcome, &r.Error); err != nil {
			return nil, shared.MarkKind(err, shared.KindDependencyFailure)
		}
		r.Due = r.Due.UTC()
		r.Started = r.Started.UTC()
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
func (s *PostgresStore) Counts(ctx context.Context) (map[Outcome]int64, error) {
	rows, err := s.pool.Query(ctx,
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
func (s *PostgresStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM runs WHERE started_at < $1`, olderThan)
	if err != nil {
		return 0, shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return tag.RowsAffected(), nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
