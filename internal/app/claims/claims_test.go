package claims

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memclaimstore "github.com/outstationguru/og-api/internal/adapters/memory/claimstore"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/platform/logging"
	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
	"github.com/outstationguru/og-api/internal/ports/out/claimstore"
)

func TestSynchronizer_MergesRoleIntoExistingClaims(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memclaimstore.NewStore()
	if err := store.Set(ctx, "uid-1", claimstore.Claims{"driver": true, "tier": "gold"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s := NewSynchronizer(store)
	if err := s.Sync(ctx, "uid-1", domain.RoleCustomer); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := store.Get(ctx, "uid-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["customer"] != true || got["driver"] != true || got["tier"] != "gold" {
		t.Fatalf("claims=%v", got)
	}
}

func TestSynchronizer_FirstSyncCreatesClaims(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memclaimstore.NewStore()

	if err := NewSynchronizer(store).Sync(ctx, "uid-1", domain.RoleAdmin); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got, _ := store.Get(ctx, "uid-1")
	if len(got) != 1 || got["admin"] != true {
		t.Fatalf("claims=%v", got)
	}
}

// slowReadStore holds every Get until both readers have arrived, so each Sync acts
// on the same stale snapshot.
type slowReadStore struct {
	claimstore.Store
	readers sync.WaitGroup
}

func (s *slowReadStore) Get(ctx context.Context, subject domain.SubjectID) (claimstore.Claims, error) {
	cur, err := s.Store.Get(ctx, subject)
	s.readers.Done()
	s.readers.Wait()
	return cur, err
}

func TestSynchronizer_ConcurrentRolesBothSurvive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &slowReadStore{Store: memclaimstore.NewStore()}
	store.readers.Add(2)
	s := NewSynchronizer(store)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, role := range []domain.Role{domain.RoleCustomer, domain.RoleDriver} {
		wg.Add(1)
		go func(role domain.Role) {
			defer wg.Done()
			errs <- s.Sync(ctx, "uid-1", role)
		}(role)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Sync: %v", err)
		}
	}

	got, err := store.Store.Get(ctx, "uid-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["customer"] != true || got["driver"] != true {
		t.Fatalf("claims=%v, want customer and driver", got)
	}
}

// flakyStore fails the first failures Merge calls.
type flakyStore struct {
	claimstore.Store
	failures int32
	sets     atomic.Int32
}

func (f *flakyStore) Merge(ctx context.Context, subject domain.SubjectID, name string, value any) error {
	if f.sets.Add(1) <= f.failures {
		return errors.New("claims backend unavailable")
	}
	return f.Store.Merge(ctx, subject, name, value)
}

func TestLocalQueue_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &flakyStore{Store: memclaimstore.NewStore(), failures: 2}
	q := NewLocalQueue(NewSynchronizer(store), 3, time.Millisecond)

	if err := q.Enqueue(ctx, claimsqueue.Job{Subject: "uid-1", Role: domain.RoleDriver}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got := store.sets.Load(); got != 3 {
		t.Fatalf("Merge calls=%d, want 3", got)
	}
}

func TestLocalQueue_GivesUpAfterAttempts(t *testing.T) {
	t.Parallel()
	store := &flakyStore{Store: memclaimstore.NewStore(), failures: 10}
	q := NewLocalQueue(NewSynchronizer(store), 2, time.Millisecond)

	if err := q.Enqueue(context.Background(), claimsqueue.Job{Subject: "uid-1", Role: domain.RoleDriver}); err == nil {
		t.Fatalf("expected error")
	}
	if got := store.sets.Load(); got != 2 {
		t.Fatalf("Merge calls=%d, want 2", got)
	}
}

func TestLocalQueue_StopsWhenContextEnds(t *testing.T) {
	t.Parallel()
	store := &flakyStore{Store: memclaimstore.NewStore(), failures: 10}
	q := NewLocalQueue(NewSynchronizer(store), 50, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, claimsqueue.Job{Subject: "uid-1", Role: domain.RoleDriver})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v, want deadline exceeded", err)
	}
	if got := store.sets.Load(); got >= 50 {
		t.Fatalf("Merge calls=%d, retries ignored the deadline", got)
	}
}

type blockingQueue struct {
	release chan struct{}
	mu      sync.Mutex
	jobs    []claimsqueue.Job
	err     error
}

func (q *blockingQueue) Enqueue(ctx context.Context, job claimsqueue.Job) error {
	select {
	case <-q.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return q.err
}

func TestDispatcher_DoesNotBlockCaller(t *testing.T) {
	t.Parallel()
	q := &blockingQueue{release: make(chan struct{})}
	d := NewDispatcher(q, time.Minute, logging.Discard())

	start := time.Now()
	d.Dispatch("uid-1", domain.RoleCustomer)
	if time.Since(start) > time.Second {
		t.Fatalf("Dispatch blocked")
	}

	close(q.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) != 1 || q.jobs[0].Subject != "uid-1" || q.jobs[0].Role != domain.RoleCustomer {
		t.Fatalf("jobs=%+v", q.jobs)
	}
}

func TestDispatcher_SwallowsErrors(t *testing.T) {
	t.Parallel()
	q := &blockingQueue{release: make(chan struct{}), err: errors.New("boom")}
	close(q.release)
	d := NewDispatcher(q, time.Minute, logging.Discard())

	d.Dispatch("uid-1", domain.RoleDriver)
	if err := d.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func TestDispatcher_JobTimesOut(t *testing.T) {
	t.Parallel()
	q := &blockingQueue{release: make(chan struct{})}
	d := NewDispatcher(q, 10*time.Millisecond, logging.Discard())

	d.Dispatch("uid-1", domain.RoleDriver)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(q.jobs) != 0 {
		t.Fatalf("job ran despite timeout")
	}
}
