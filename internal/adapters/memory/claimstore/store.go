package claimstore

import (
	"context"
	"sync"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/claimstore"
)

// Store is an in-memory claims store. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[domain.SubjectID]claimstore.Claims
}

func NewStore() *Store {
	return &Store{m: make(map[domain.SubjectID]claimstore.Claims)}
}

func (s *Store) Get(ctx context.Context, subject domain.SubjectID) (claimstore.Claims, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneClaims(s.m[subject]), nil
}

func (s *Store) Set(ctx context.Context, subject domain.SubjectID, claims claimstore.Claims) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[subject] = cloneClaims(claims)
	return nil
}

func (s *Store) Merge(ctx context.Context, subject domain.SubjectID, name string, value any) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[subject]
	if !ok {
		cur = make(claimstore.Claims, 1)
		s.m[subject] = cur
	}
	cur[name] = value
	return nil
}

func cloneClaims(in claimstore.Claims) claimstore.Claims {
	out := make(claimstore.Claims, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
