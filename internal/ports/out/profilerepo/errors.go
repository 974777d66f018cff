package profilerepo

import "errors"

var (
	ErrNotFound = errors.New("profile not found")
	ErrConflict = errors.New("profile: transaction conflict, retries exhausted")

	// ErrExternalIDTaken means an external id is already bound to another subject or role.
	ErrExternalIDTaken = errors.New("external id already assigned")
)
