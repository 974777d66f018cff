package riderepo

import (
	"context"
	"sync"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

// Repo is an in-memory implementation of riderepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.RideID]domain.Ride
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.RideID]domain.Ride)}
}

func (r *Repo) Create(ctx context.Context, ride domain.Ride) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ride.ID]; ok {
		return riderepo.ErrAlreadyExists
	}
	r.byID[ride.ID] = cloneRide(ride)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.RideID) (domain.Ride, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	ride, ok := r.byID[id]
	if !ok {
		return domain.Ride{}, riderepo.ErrNotFound
	}
	return cloneRide(ride), nil
}

// Len returns the number of stored drafts.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func cloneRide(in domain.Ride) domain.Ride {
	out := in
	if in.QuoteTotal != nil {
		v := *in.QuoteTotal
		out.QuoteTotal = &v
	}
	if in.CustomerUID != nil {
		v := *in.CustomerUID
		out.CustomerUID = &v
	}
	return out
}
