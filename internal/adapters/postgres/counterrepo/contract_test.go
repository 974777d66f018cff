package counterrepo

import (
	"testing"

	"github.com/outstationguru/og-api/internal/adapters/contracttest"
	"github.com/outstationguru/og-api/internal/adapters/postgres/testutil"
	counterrepoport "github.com/outstationguru/og-api/internal/ports/out/counterrepo"
)

func TestContract_PostgresCounterRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunCounterRepo(t, func(t *testing.T) (counterrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool, 50), nil
	})
}
