package claimstore

import (
	"context"

	"github.com/outstationguru/og-api/internal/domain"
)

// Claims are the custom attributes attached to a subject's credentials.
// Values are JSON-compatible.
type Claims map[string]any

// Store reads and writes a subject's claims. A subject without claims reads as empty.
//
// Set replaces the whole claim set. Merge writes a single claim atomically and leaves
// every other claim alone, so concurrent merges of different names never lose each other.
type Store interface {
	Get(ctx context.Context, subject domain.SubjectID) (Claims, error)
	Set(ctx context.Context, subject domain.SubjectID, claims Claims) error
	Merge(ctx context.Context, subject domain.SubjectID, name string, value any) error
}
