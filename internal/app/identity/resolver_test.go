package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	memaccountrepo "github.com/outstationguru/og-api/internal/adapters/memory/accountrepo"
	memclock "github.com/outstationguru/og-api/internal/adapters/memory/clock"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/platform/logging"
	"github.com/outstationguru/og-api/internal/ports/out/accountrepo"
)

type stubVerifier struct {
	subjects map[string]string
	calls    int
}

func (v *stubVerifier) Verify(_ context.Context, token string) (string, error) {
	v.calls++
	if sub, ok := v.subjects[token]; ok {
		return sub, nil
	}
	return "", errors.New("invalid token")
}

func newAccounts() *memaccountrepo.Repo {
	return memaccountrepo.NewRepo(memclock.NewManualClock(time.Unix(1700000000, 0)))
}

func TestResolve_ValidBearerWinsOverPhone(t *testing.T) {
	t.Parallel()

	accounts := newAccounts()
	r := NewResolver(&stubVerifier{subjects: map[string]string{"good": "uid-token"}}, accounts, logging.Discard())

	sub, err := r.Resolve(context.Background(), Request{BearerToken: "good", Phone: "+91 99999 00000"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sub != "uid-token" {
		t.Fatalf("sub=%q, want uid-token", sub)
	}
	if _, err := accounts.GetByPhone(context.Background(), "+919999900000"); !errors.Is(err, accountrepo.ErrNotFound) {
		t.Fatalf("phone path must not run when the token is valid; err=%v", err)
	}
}

func TestResolve_InvalidBearerFallsBackToPhone(t *testing.T) {
	t.Parallel()

	r := NewResolver(&stubVerifier{}, newAccounts(), logging.Discard())

	sub, err := r.Resolve(context.Background(), Request{BearerToken: "forged", Phone: "+91 98765 43210"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sub == "" {
		t.Fatalf("expected a subject from the phone path")
	}
}

func TestResolve_PhoneIsStableAcrossWhitespaceVariants(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, newAccounts(), logging.Discard())

	a, err := r.Resolve(context.Background(), Request{Phone: "+91 98765 43210", DisplayName: "  Asha  Rao "})
	if err != nil {
		t.Fatalf("Resolve a: %v", err)
	}
	b, err := r.Resolve(context.Background(), Request{Phone: "+919876543210"})
	if err != nil {
		t.Fatalf("Resolve b: %v", err)
	}
	if a != b {
		t.Fatalf("subjects differ: %q vs %q", a, b)
	}
}

func TestResolve_NewAccountGetsDisplayName(t *testing.T) {
	t.Parallel()

	accounts := newAccounts()
	r := NewResolver(nil, accounts, logging.Discard())
	if _, err := r.Resolve(context.Background(), Request{Phone: "+15550001", DisplayName: "  Asha  Rao "}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	acct, err := accounts.GetByPhone(context.Background(), "+15550001")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if acct.DisplayName == nil || *acct.DisplayName != "Asha Rao" {
		t.Fatalf("displayName=%v", acct.DisplayName)
	}
}

func TestResolve_NothingPresented(t *testing.T) {
	t.Parallel()

	r := NewResolver(&stubVerifier{}, newAccounts(), logging.Discard())

	cases := []Request{
		{},
		{Phone: "   "},
		{BearerToken: "forged"},
	}
	for _, req := range cases {
		if _, err := r.Resolve(context.Background(), req); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("Resolve(%+v) err=%v, want ErrUnauthenticated", req, err)
		}
	}
}

// racyAccounts reports not-found on the first lookup and a conflict on create,
// as if another request created the account in between.
type racyAccounts struct {
	mu      sync.Mutex
	lookups int
	winner  accountrepo.Account
}

func (a *racyAccounts) GetByPhone(_ context.Context, _ string) (accountrepo.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookups++
	if a.lookups == 1 {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	return a.winner, nil
}

func (a *racyAccounts) Create(context.Context, accountrepo.NewAccount) (accountrepo.Account, error) {
	return accountrepo.Account{}, accountrepo.ErrPhoneTaken
}

func TestResolve_LostCreateRaceReadsWinner(t *testing.T) {
	t.Parallel()

	accts := &racyAccounts{winner: accountrepo.Account{UID: domain.SubjectID("uid-winner")}}
	r := NewResolver(nil, accts, logging.Discard())

	sub, err := r.Resolve(context.Background(), Request{Phone: "+15550002"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sub != "uid-winner" {
		t.Fatalf("sub=%q, want uid-winner", sub)
	}
}

type brokenAccounts struct{}

func (brokenAccounts) GetByPhone(context.Context, string) (accountrepo.Account, error) {
	return accountrepo.Account{}, errors.New("provider unavailable")
}

func (brokenAccounts) Create(context.Context, accountrepo.NewAccount) (accountrepo.Account, error) {
	return accountrepo.Account{}, errors.New("provider unavailable")
}

func TestResolve_ProviderOutageIsAnError(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, brokenAccounts{}, logging.Discard())
	_, err := r.Resolve(context.Background(), Request{Phone: "+15550003"})
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err=%v, want a non-auth error", err)
	}
}
