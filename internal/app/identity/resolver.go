// Package identity maps an inbound caller to a stable subject.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/accountrepo"
	"github.com/outstationguru/og-api/internal/ports/out/tokenverifier"
)

// ErrUnauthenticated means no strategy produced a subject.
var ErrUnauthenticated = errors.New("unauthenticated")

// Request carries every credential the caller presented.
type Request struct {
	BearerToken string
	Phone       string
	// DisplayName seeds a newly created account.
	DisplayName string
}

// Resolver tries, in order: the bearer token, then the phone number.
//
// A token that fails verification is treated as absent. A phone number that has no account
// gets one.
type Resolver struct {
	verifier tokenverifier.Verifier
	accounts accountrepo.Repository
	logger   *slog.Logger
}

func NewResolver(verifier tokenverifier.Verifier, accounts accountrepo.Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{verifier: verifier, accounts: accounts, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, req Request) (domain.SubjectID, error) {
	if req.BearerToken != "" && r.verifier != nil {
		sub, err := r.verifier.Verify(ctx, req.BearerToken)
		if err == nil && sub != "" {
			return domain.SubjectID(sub), nil
		}
		r.logger.DebugContext(ctx, "bearer credential rejected, falling back", "error", err)
	}

	phone := domain.NormalizePhone(req.Phone)
	if phone != "" && r.accounts != nil {
		return r.resolvePhone(ctx, phone, domain.NormalizeHumanName(req.DisplayName))
	}

	return "", ErrUnauthenticated
}

func (r *Resolver) resolvePhone(ctx context.Context, phone, displayName string) (domain.SubjectID, error) {
	acct, err := r.accounts.GetByPhone(ctx, phone)
	switch {
	case err == nil:
		return acct.UID, nil
	case errors.Is(err, accountrepo.ErrNotFound):
	default:
		// Lookup trouble is not fatal: creation below either succeeds or reports the conflict.
		r.logger.WarnContext(ctx, "account lookup by phone failed", "error", err)
	}

	acct, err = r.accounts.Create(ctx, accountrepo.NewAccount{Phone: phone, DisplayName: displayName})
	if err == nil {
		return acct.UID, nil
	}
	if errors.Is(err, accountrepo.ErrPhoneTaken) {
		// Lost a race with a concurrent sign-up for the same phone.
		acct, lookupErr := r.accounts.GetByPhone(ctx, phone)
		if lookupErr == nil {
			return acct.UID, nil
		}
		return "", fmt.Errorf("resolve account after concurrent create: %w", lookupErr)
	}
	return "", fmt.Errorf("create account: %w", err)
}
