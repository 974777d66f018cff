// Package claims mirrors role membership into each subject's credential claims.
//
// Claims are a convenience copy of the profile's roles. Sync failures never fail the
// request that triggered them.
package claims

import (
	"context"
	"fmt"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/claimstore"
)

// Synchronizer sets claims[role] = true, keeping every other claim.
// Only the role's own claim is written.
type Synchronizer struct {
	store claimstore.Store
}

func NewSynchronizer(store claimstore.Store) *Synchronizer {
	return &Synchronizer{store: store}
}

func (s *Synchronizer) Sync(ctx context.Context, subject domain.SubjectID, role domain.Role) error {
	cur, err := s.store.Get(ctx, subject)
	if err != nil {
		return fmt.Errorf("read claims for %s: %w", subject, err)
	}
	if v, ok := cur[string(role)].(bool); ok && v {
		return nil
	}
	if err := s.store.Merge(ctx, subject, string(role), true); err != nil {
		return fmt.Errorf("write claims for %s: %w", subject, err)
	}
	return nil
}
