package postgres

import "embed"

// MigrationFS embeds the schema migrations applied by cmd/migrate and the test harness.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
