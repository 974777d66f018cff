// Package rides records ride drafts.
package rides

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/outstationguru/og-api/internal/domain"
	clockport "github.com/outstationguru/og-api/internal/ports/out/clock"
	"github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

type CreateDraftInput struct {
	CustomerUID *domain.SubjectID
	Pickup      string
	Drop        string
	When        string
	// VehicleType defaults to sedan when empty.
	VehicleType domain.VehicleType
	QuoteTotal  *float64
}

type Service struct {
	repo riderepo.Repository
	clk  clockport.Clock

	newRideID func() domain.RideID
}

func NewService(repo riderepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newRideID: func() domain.RideID {
			return domain.RideID(uuid.NewString())
		},
	}
}

func (s *Service) CreateDraft(ctx context.Context, in CreateDraftInput) (domain.Ride, error) {
	vt := in.VehicleType
	if vt == "" {
		vt = domain.DefaultVehicleType
	}
	if _, err := domain.ParseVehicleType(string(vt)); err != nil {
		return domain.Ride{}, err
	}

	now := s.clk.Now()
	r := domain.Ride{
		ID:          s.newRideID(),
		Status:      domain.RideStatusDraft,
		Pickup:      in.Pickup,
		Drop:        in.Drop,
		When:        in.When,
		VehicleType: vt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.QuoteTotal != nil && *in.QuoteTotal > 0 {
		v := *in.QuoteTotal
		r.QuoteTotal = &v
	}
	if in.CustomerUID != nil && *in.CustomerUID != "" {
		v := *in.CustomerUID
		r.CustomerUID = &v
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return domain.Ride{}, fmt.Errorf("create ride draft: %w", err)
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id domain.RideID) (domain.Ride, error) {
	return s.repo.GetByID(ctx, id)
}
