// Package devverifier accepts any non-empty bearer token as the subject it names.
// It backs AUTH_MODE=dev and must never run in production.
package devverifier

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyToken = errors.New("empty dev token")

type Verifier struct{}

func New() Verifier { return Verifier{} }

// Verify returns the trimmed token as the subject.
func (Verifier) Verify(_ context.Context, token string) (string, error) {
	sub := strings.TrimSpace(token)
	if sub == "" {
		return "", ErrEmptyToken
	}
	return sub, nil
}
