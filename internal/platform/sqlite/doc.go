// Package sqlite provides the embedded-database platform layer: handle
// construction with tuned PRAGMA settings, schema migrations from an
// embedded filesystem, and test helpers.
//
// Quick start:
//
//	ctx := context.Background()
//	db, err := sqlite.NewDB(ctx, "schedmon.db")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
// In tests:
//
//	func TestStore(t *testing.T) {
//		tdb := sqlite.NewTestDBInMemory(t)
//		tdb.ApplyTestMigrations(t, migrationsFS, "migrations/sqlite")
//	}
package sqlite
