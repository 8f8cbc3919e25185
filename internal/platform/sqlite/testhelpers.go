package sqlite

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"
)

// TestDB wraps a SQLite handle with helpers for store tests.
type TestDB struct {
	DB   *sql.DB
	Path string // empty for in-memory
}

// NewTestDBInMemory creates an in-memory database that is closed when
// the test finishes.
func NewTestDBInMemory(t *testing.T) *TestDB {
	t.Helper()

	db, err := NewInMemoryDB(context.Background())
	if err != nil {
		t.Fatalf("create in-memory test DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db, Path: ":memory:"}
}

// NewTestDBFile creates a file-backed database under t.TempDir; the
// file goes away with the test's temp directory.
func NewTestDBFile(t *testing.T) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(context.Background(), path)
	if err != nil {
		t.Fatalf("create file test DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db, Path: path}
}

// ApplyTestMigrations applies migrations from an embedded filesystem
// and fails the test on error.
func (tdb *TestDB) ApplyTestMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()

	if err := ApplyMigrations(tdb.DB, fsys, dir); err != nil {
		t.Fatalf("apply test migrations: %v", err)
	}
}

// Exec runs a statement and fails the test on error.
func (tdb *TestDB) Exec(t *testing.T, query string, args ...any) sql.Result {
	t.Helper()

	result, err := tdb.DB.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("execute query: %v", err)
	}
	return result
}

// QueryRow runs a single-row query.
func (tdb *TestDB) QueryRow(t *testing.T, query string, args ...any) *sql.Row {
	t.Helper()
	return tdb.DB.QueryRowContext(context.Background(), query, args...)
}

// CountRows returns the number of rows in a table.
func (tdb *TestDB) CountRows(t *testing.T, tableName string) int {
	t.Helper()

	var count int
	if err := tdb.QueryRow(t, "SELECT COUNT(*) FROM "+tableName).Scan(&count); err != nil {
		t.Fatalf("count rows in %s: %v", tableName, err)
	}
	return count
}

// TableExists reports whether a table is present in the schema.
func (tdb *TestDB) TableExists(t *testing.T, tableName string) bool {
	t.Helper()

	var count int
	row := tdb.QueryRow(t, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", tableName)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("check table existence: %v", err)
	}
	return count > 0
}
