package profilerepo

import (
	"testing"

	"github.com/outstationguru/og-api/internal/adapters/contracttest"
	profilerepoport "github.com/outstationguru/og-api/internal/ports/out/profilerepo"
)

func TestContract_ProfileRepo(t *testing.T) {
	contracttest.RunProfileRepo(t, func(t *testing.T) (profilerepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
