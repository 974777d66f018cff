package riderepo

import (
	"testing"

	"github.com/outstationguru/og-api/internal/adapters/contracttest"
	riderepoport "github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

func TestContract_RideRepo(t *testing.T) {
	contracttest.RunRideRepo(t, func(t *testing.T) (riderepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
