package riderepo

import (
	"context"

	"github.com/outstationguru/og-api/internal/domain"
)

// Repository stores ride drafts. Records are append-only.
type Repository interface {
	Create(ctx context.Context, r domain.Ride) error
	GetByID(ctx context.Context, id domain.RideID) (domain.Ride, error)
}
