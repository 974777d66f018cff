package tokenverifier

import "context"

// Verifier validates a bearer credential and returns the subject it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
