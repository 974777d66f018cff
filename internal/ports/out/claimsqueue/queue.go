package claimsqueue

import (
	"context"

	"github.com/outstationguru/og-api/internal/domain"
)

// Job asks for Role to be mirrored into Subject's claims.
type Job struct {
	Subject domain.SubjectID `json:"subject"`
	Role    domain.Role      `json:"role"`
}

// Queue hands claim sync jobs to whatever applies them.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}
