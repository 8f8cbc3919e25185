package history

import "embed"

// Migrations are compiled into the binary so a deployment is a single
// file plus its database.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS
