// Package testutil opens a migrated Postgres pool for adapter tests.
//
// Tests using it are skipped unless TEST_DATABASE_URL points at a disposable database.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/outstationguru/og-api/internal/adapters/postgres"
	"github.com/outstationguru/og-api/internal/adapters/postgres/migrate"
)

const envDSN = "TEST_DATABASE_URL"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// OpenMigratedPool returns a pool on TEST_DATABASE_URL with the schema applied.
// The pool is closed when the test finishes.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres test", envDSN)
	}

	migrateOnce.Do(func() {
		migrateErr = migrate.Run(dsn, "up")
	})
	if migrateErr != nil {
		t.Fatalf("migrate: %v", migrateErr)
	}

	pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolOptions{MaxConns: 16})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
