package sqlite

import (
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"migrations/0001_notes.up.sql": &fstest.MapFile{
		Data: []byte(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL);`),
	},
	"migrations/0001_notes.down.sql": &fstest.MapFile{
		Data: []byte(`DROP TABLE notes;`),
	},
}

func TestApplyMigrations(t *testing.T) {
	t.Parallel()

	tdb := NewTestDBInMemory(t)

	if err := ApplyMigrations(tdb.DB, testMigrations, "migrations"); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	if !tdb.TableExists(t, "notes") {
		t.Error("expected notes table after migration")
	}

	version, dirty, err := MigrationVersion(tdb.DB)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected version 1 clean, got %d dirty=%v", version, dirty)
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	t.Parallel()

	tdb := NewTestDBInMemory(t)

	if err := ApplyMigrations(tdb.DB, testMigrations, "migrations"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := ApplyMigrations(tdb.DB, testMigrations, "migrations"); err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}
}

func TestApplyMigrationsMissingDir(t *testing.T) {
	t.Parallel()

	tdb := NewTestDBInMemory(t)

	if err := ApplyMigrations(tdb.DB, fstest.MapFS{}, "migrations"); err == nil {
		t.Error("expected error for missing migrations directory")
	}
}
