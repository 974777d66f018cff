package counterrepo

import (
	"context"
	"sync"
)

// Repo is an in-memory implementation of counterrepo.Repository.
// It is safe for concurrent use; the mutex is the store's isolation level.
type Repo struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewRepo() *Repo {
	return &Repo{values: make(map[string]int64)}
}

func (r *Repo) Next(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name]++
	return r.values[name], nil
}

// Value returns the last issued value for name (0 if none).
func (r *Repo) Value(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[name]
}
