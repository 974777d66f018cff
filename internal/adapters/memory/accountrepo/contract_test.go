package accountrepo

import (
	"testing"
	"time"

	"github.com/outstationguru/og-api/internal/adapters/contracttest"
	memclock "github.com/outstationguru/og-api/internal/adapters/memory/clock"
	accountrepoport "github.com/outstationguru/og-api/internal/ports/out/accountrepo"
)

func TestContract_AccountRepo(t *testing.T) {
	contracttest.RunAccountRepo(t, func(t *testing.T) (accountrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(memclock.NewManualClock(time.Unix(1700000000, 0))), nil
	})
}
