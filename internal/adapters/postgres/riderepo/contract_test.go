package riderepo

import (
	"testing"

	"github.com/outstationguru/og-api/internal/adapters/contracttest"
	"github.com/outstationguru/og-api/internal/adapters/postgres/testutil"
	riderepoport "github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

func TestContract_PostgresRideRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunRideRepo(t, func(t *testing.T) (riderepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
