package profilerepo

import (
	"context"

	"github.com/outstationguru/og-api/internal/domain"
)

// MergeFunc computes the record to persist from the record currently stored.
// exists is false when no record is stored yet; current is then the zero value.
//
// Implementations may invoke a MergeFunc more than once when a transaction is retried,
// so it must not have side effects.
type MergeFunc func(current domain.Profile, exists bool) (domain.Profile, error)

// Repository stores subject profiles.
type Repository interface {
	Get(ctx context.Context, subject domain.SubjectID) (domain.Profile, error)

	// Merge runs fn and writes its result in one isolated read-modify-write transaction.
	Merge(ctx context.Context, subject domain.SubjectID, fn MergeFunc) (domain.Profile, error)
}
