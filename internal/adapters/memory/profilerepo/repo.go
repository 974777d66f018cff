package profilerepo

import (
	"context"
	"sync"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use. Merge holds the write lock for the whole
// read-modify-write, so merges on any subject are serialized.
type Repo struct {
	mu sync.RWMutex

	bySubject map[domain.SubjectID]domain.Profile
	owners    map[domain.ExternalID]domain.SubjectID
}

func NewRepo() *Repo {
	return &Repo{
		bySubject: make(map[domain.SubjectID]domain.Profile),
		owners:    make(map[domain.ExternalID]domain.SubjectID),
	}
}

func (r *Repo) Get(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySubject[subject]
	if !ok {
		return domain.Profile{}, profilerepo.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *Repo) Merge(ctx context.Context, subject domain.SubjectID, fn profilerepo.MergeFunc) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, exists := r.bySubject[subject]
	if exists {
		cur = cur.Clone()
	}
	next, err := fn(cur, exists)
	if err != nil {
		return domain.Profile{}, err
	}
	next.Subject = subject

	for role, id := range next.IDs {
		if prev, ok := cur.IDs[role]; ok && prev != id {
			return domain.Profile{}, profilerepo.ErrExternalIDTaken
		}
		if owner, ok := r.owners[id]; ok && owner != subject {
			return domain.Profile{}, profilerepo.ErrExternalIDTaken
		}
	}
	for _, id := range next.IDs {
		r.owners[id] = subject
	}

	r.bySubject[subject] = next.Clone()
	return next.Clone(), nil
}
