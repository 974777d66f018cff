package accountrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/accountrepo"
	clockport "github.com/outstationguru/og-api/internal/ports/out/clock"
)

// Repo is an in-memory identity-provider account directory.
// It is safe for concurrent use.
type Repo struct {
	mu      sync.RWMutex
	byPhone map[string]accountrepo.Account
	clk     clockport.Clock

	newUID func() domain.SubjectID
}

func NewRepo(clk clockport.Clock) *Repo {
	return &Repo{
		byPhone: make(map[string]accountrepo.Account),
		clk:     clk,
		newUID: func() domain.SubjectID {
			return domain.SubjectID(uuid.NewString())
		},
	}
}

func (r *Repo) GetByPhone(ctx context.Context, phone string) (accountrepo.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byPhone[phone]
	if !ok {
		return accountrepo.Account{}, accountrepo.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *Repo) Create(ctx context.Context, in accountrepo.NewAccount) (accountrepo.Account, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPhone[in.Phone]; ok {
		return accountrepo.Account{}, accountrepo.ErrPhoneTaken
	}
	a := accountrepo.Account{
		UID:       r.newUID(),
		Phone:     in.Phone,
		CreatedAt: r.now(),
	}
	if in.DisplayName != "" {
		dn := in.DisplayName
		a.DisplayName = &dn
	}
	r.byPhone[in.Phone] = a
	return cloneAccount(a), nil
}

func (r *Repo) now() time.Time {
	if r.clk == nil {
		return time.Now().UTC()
	}
	return r.clk.Now()
}

func cloneAccount(in accountrepo.Account) accountrepo.Account {
	out := in
	if in.DisplayName != nil {
		v := *in.DisplayName
		out.DisplayName = &v
	}
	return out
}
