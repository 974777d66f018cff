package accountrepo

import "errors"

var (
	ErrNotFound   = errors.New("account not found")
	ErrPhoneTaken = errors.New("phone number already registered")
)
