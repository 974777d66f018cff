package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/outstationguru/og-api/internal/ports/out/clock"
	"github.com/outstationguru/og-api/internal/ports/out/idempotency"
)

// DefaultRetention bounds how long a key can be replayed.
const DefaultRetention = 24 * time.Hour

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Records older than the retention window read as absent
// and are dropped on the next Put.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record

	retention time.Duration
	now       func() time.Time
}

func NewStore() *Store {
	return NewStoreWithOptions(DefaultRetention, nil)
}

func NewStoreWithOptions(retention time.Duration, clk clockport.Clock) *Store {
	now := func() time.Time { return time.Now().UTC() }
	if clk != nil {
		now = clk.Now
	}
	return &Store{
		m:         make(map[idempotency.Fingerprint]idempotency.Record),
		retention: retention,
		now:       now,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.Body = append([]byte(nil), rec.Body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.retention > 0 && s.now().Sub(rec.CreatedAt) > s.retention
}
