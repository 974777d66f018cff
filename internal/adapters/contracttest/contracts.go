package contracttest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/outstationguru/og-api/internal/domain"
	accountrepoport "github.com/outstationguru/og-api/internal/ports/out/accountrepo"
	claimstoreport "github.com/outstationguru/og-api/internal/ports/out/claimstore"
	counterrepoport "github.com/outstationguru/og-api/internal/ports/out/counterrepo"
	idempotencyport "github.com/outstationguru/og-api/internal/ports/out/idempotency"
	profilerepoport "github.com/outstationguru/og-api/internal/ports/out/profilerepo"
	riderepoport "github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

type CleanupFunc = func()

type CounterRepoFactory func(t *testing.T) (counterrepoport.Repository, CleanupFunc)
type ProfileRepoFactory func(t *testing.T) (profilerepoport.Repository, CleanupFunc)
type RideRepoFactory func(t *testing.T) (riderepoport.Repository, CleanupFunc)
type AccountRepoFactory func(t *testing.T) (accountrepoport.Repository, CleanupFunc)
type ClaimStoreFactory func(t *testing.T) (claimstoreport.Store, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// uniqueName keeps contract runs against a shared database from colliding.
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key(uniqueName("k")),
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/api/v1/rides/createDraft",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Anonymous callers and other subjects are distinct fingerprints.
	anon := fp
	anon.Subject = ""
	if _, ok, err := store.Get(ctx, anon); err != nil || ok {
		t.Fatalf("anonymous fingerprint should be distinct: ok=%v err=%v", ok, err)
	}
}

func RunCounterRepo(t *testing.T, newRepo CounterRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Sequential issuance starts at 1 and has no gaps.
	seq := uniqueName("seq")
	for want := int64(1); want <= 3; want++ {
		got, err := repo.Next(ctx, seq)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("Next=%d, want %d", got, want)
		}
	}

	// Counters are independent per name.
	other := uniqueName("other")
	if got, err := repo.Next(ctx, other); err != nil || got != 1 {
		t.Fatalf("Next(other)=%d,%v want 1", got, err)
	}

	// Concurrent issuance yields exactly {1..N}.
	const n = 40
	name := uniqueName("concurrent")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		got  []int64
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.Next(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, v)
		}()
	}
	wg.Wait()

	// Adapters may surface ErrConflict under heavy contention; successful values must still be unique.
	for _, err := range errs {
		if !errors.Is(err, counterrepoport.ErrConflict) {
			t.Fatalf("unexpected Next error: %v", err)
		}
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		if v != int64(i+1) {
			t.Fatalf("concurrent values not contiguous from 1: %v", got)
		}
	}
	if len(got)+len(errs) != n {
		t.Fatalf("lost calls: got=%d errs=%d", len(got), len(errs))
	}
}

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	sub := domain.SubjectID(uniqueName("sub"))
	if _, err := repo.Get(ctx, sub); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Get missing: err=%v, want ErrNotFound", err)
	}

	t0 := time.Unix(1000, 0).UTC()
	custID := domain.ExternalID(uniqueName("OGC"))
	created, err := repo.Merge(ctx, sub, func(cur domain.Profile, exists bool) (domain.Profile, error) {
		if exists {
			return domain.Profile{}, fmt.Errorf("unexpected existing profile: %+v", cur)
		}
		name := "Asha"
		return domain.Profile{
			Roles:       map[domain.Role]bool{domain.RoleCustomer: true},
			IDs:         map[domain.Role]domain.ExternalID{domain.RoleCustomer: custID},
			DisplayName: &name,
			CreatedAt:   t0,
			UpdatedAt:   t0,
		}, nil
	})
	if err != nil {
		t.Fatalf("Merge create: %v", err)
	}
	if created.Subject != sub || created.IDs[domain.RoleCustomer] != custID {
		t.Fatalf("unexpected created profile: %+v", created)
	}

	got, err := repo.Get(ctx, sub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasRole(domain.RoleCustomer) || got.DisplayName == nil || *got.DisplayName != "Asha" || !got.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected stored profile: %+v", got)
	}

	// Second merge sees the stored record and extends it.
	t1 := t0.Add(time.Minute)
	drvID := domain.ExternalID(uniqueName("OGD"))
	updated, err := repo.Merge(ctx, sub, func(cur domain.Profile, exists bool) (domain.Profile, error) {
		if !exists {
			return domain.Profile{}, errors.New("expected existing profile")
		}
		cur.Roles[domain.RoleDriver] = true
		cur.IDs[domain.RoleDriver] = drvID
		cur.UpdatedAt = t1
		return cur, nil
	})
	if err != nil {
		t.Fatalf("Merge update: %v", err)
	}
	if len(updated.Roles) != 2 || updated.IDs[domain.RoleCustomer] != custID || updated.IDs[domain.RoleDriver] != drvID {
		t.Fatalf("unexpected merged profile: %+v", updated)
	}
	if !updated.CreatedAt.Equal(t0) || !updated.UpdatedAt.Equal(t1) {
		t.Fatalf("timestamps: created=%v updated=%v", updated.CreatedAt, updated.UpdatedAt)
	}

	// A failing MergeFunc leaves the record untouched.
	boom := errors.New("boom")
	if _, err := repo.Merge(ctx, sub, func(domain.Profile, bool) (domain.Profile, error) {
		return domain.Profile{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Merge err=%v, want boom", err)
	}
	got, err = repo.Get(ctx, sub)
	if err != nil || len(got.Roles) != 2 {
		t.Fatalf("profile changed by failed merge: %+v err=%v", got, err)
	}

	// An external id cannot be bound to two subjects.
	other := domain.SubjectID(uniqueName("sub"))
	_, err = repo.Merge(ctx, other, func(domain.Profile, bool) (domain.Profile, error) {
		return domain.Profile{
			Roles:     map[domain.Role]bool{domain.RoleCustomer: true},
			IDs:       map[domain.Role]domain.ExternalID{domain.RoleCustomer: custID},
			CreatedAt: t1,
			UpdatedAt: t1,
		}, nil
	})
	if !errors.Is(err, profilerepoport.ErrExternalIDTaken) {
		t.Fatalf("duplicate external id: err=%v, want ErrExternalIDTaken", err)
	}

	// Concurrent merges on one subject serialize: every increment lands.
	counterSub := domain.SubjectID(uniqueName("sub"))
	const n = 20
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := domain.Role(fmt.Sprintf("r%02d", i))
			_, err := repo.Merge(ctx, counterSub, func(cur domain.Profile, exists bool) (domain.Profile, error) {
				if !exists {
					cur = domain.Profile{
						Roles:     map[domain.Role]bool{},
						IDs:       map[domain.Role]domain.ExternalID{},
						CreatedAt: t0,
					}
				}
				cur.Roles[role] = true
				cur.UpdatedAt = t1
				return cur, nil
			})
			if err != nil && !errors.Is(err, profilerepoport.ErrConflict) {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent merge: %v", err)
	}
	got, err = repo.Get(ctx, counterSub)
	if err != nil {
		t.Fatalf("Get after concurrent merges: %v", err)
	}
	if len(got.Roles) == 0 || len(got.Roles) > n {
		t.Fatalf("unexpected role count %d", len(got.Roles))
	}
}

func RunRideRepo(t *testing.T, newRepo RideRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	total := 1523.0
	cust := domain.SubjectID("cust-1")
	ride := domain.Ride{
		ID:          domain.RideID(uuid.NewString()),
		Status:      domain.RideStatusDraft,
		Pickup:      "Pune",
		Drop:        "Mumbai",
		When:        "2026-11-01T09:00:00+05:30",
		VehicleType: domain.VehicleSedan,
		QuoteTotal:  &total,
		CustomerUID: &cust,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, ride); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, ride.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Pickup != "Pune" || got.Drop != "Mumbai" || got.Status != domain.RideStatusDraft || got.VehicleType != domain.VehicleSedan {
		t.Fatalf("unexpected ride: %+v", got)
	}
	if got.QuoteTotal == nil || *got.QuoteTotal != total || got.CustomerUID == nil || *got.CustomerUID != cust {
		t.Fatalf("optional fields not preserved: %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not preserved: %+v", got)
	}

	if err := repo.Create(ctx, ride); !errors.Is(err, riderepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate Create err=%v, want ErrAlreadyExists", err)
	}

	// Optional fields may be absent.
	bare := ride
	bare.ID = domain.RideID(uuid.NewString())
	bare.QuoteTotal = nil
	bare.CustomerUID = nil
	if err := repo.Create(ctx, bare); err != nil {
		t.Fatalf("Create bare: %v", err)
	}
	got, err = repo.GetByID(ctx, bare.ID)
	if err != nil || got.QuoteTotal != nil || got.CustomerUID != nil {
		t.Fatalf("bare ride: %+v err=%v", got, err)
	}

	if _, err := repo.GetByID(ctx, domain.RideID(uuid.NewString())); !errors.Is(err, riderepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want ErrNotFound", err)
	}
}

func RunAccountRepo(t *testing.T, newRepo AccountRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	phone := "+91" + uuid.NewString()[:10]
	if _, err := repo.GetByPhone(ctx, phone); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("GetByPhone missing err=%v, want ErrNotFound", err)
	}

	created, err := repo.Create(ctx, accountrepoport.NewAccount{Phone: phone, DisplayName: "Ravi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.UID == "" || created.Phone != phone {
		t.Fatalf("unexpected account: %+v", created)
	}
	if created.DisplayName == nil || *created.DisplayName != "Ravi" {
		t.Fatalf("displayName not stored: %+v", created)
	}

	got, err := repo.GetByPhone(ctx, phone)
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if got.UID != created.UID {
		t.Fatalf("uid mismatch: %q vs %q", got.UID, created.UID)
	}

	if _, err := repo.Create(ctx, accountrepoport.NewAccount{Phone: phone}); !errors.Is(err, accountrepoport.ErrPhoneTaken) {
		t.Fatalf("duplicate phone err=%v, want ErrPhoneTaken", err)
	}

	anon, err := repo.Create(ctx, accountrepoport.NewAccount{Phone: "+1" + uuid.NewString()[:10]})
	if err != nil {
		t.Fatalf("Create without name: %v", err)
	}
	if anon.DisplayName != nil || anon.UID == created.UID {
		t.Fatalf("unexpected anonymous account: %+v", anon)
	}
}

func RunClaimStore(t *testing.T, newStore ClaimStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	sub := domain.SubjectID(uniqueName("sub"))
	got, err := store.Get(ctx, sub)
	if err != nil {
		t.Fatalf("Get empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no claims, got %v", got)
	}

	if err := store.Set(ctx, sub, claimstoreport.Claims{"customer": true, "tier": "gold"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = store.Get(ctx, sub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["customer"] != true || got["tier"] != "gold" {
		t.Fatalf("unexpected claims: %v", got)
	}

	// Set replaces the whole claim set.
	if err := store.Set(ctx, sub, claimstoreport.Claims{"driver": true}); err != nil {
		t.Fatalf("Set replace: %v", err)
	}
	got, err = store.Get(ctx, sub)
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if len(got) != 1 || got["driver"] != true {
		t.Fatalf("claims not replaced: %v", got)
	}

	// Mutating the returned map does not leak into the store.
	got["admin"] = true
	again, _ := store.Get(ctx, sub)
	if _, ok := again["admin"]; ok {
		t.Fatalf("store aliased returned claims")
	}

	// Merge writes one claim and keeps the rest.
	if err := store.Merge(ctx, sub, "customer", true); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	got, err = store.Get(ctx, sub)
	if err != nil {
		t.Fatalf("Get after merge: %v", err)
	}
	if len(got) != 2 || got["driver"] != true || got["customer"] != true {
		t.Fatalf("merge lost claims: %v", got)
	}

	// Concurrent merges of different names all land, including on a fresh subject.
	fresh := domain.SubjectID(uniqueName("sub"))
	names := []string{"customer", "driver", "partner", "admin", "ops"}
	var wg sync.WaitGroup
	errs := make(chan error, len(names))
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			errs <- store.Merge(ctx, fresh, name, true)
		}(name)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Merge: %v", err)
		}
	}
	got, err = store.Get(ctx, fresh)
	if err != nil {
		t.Fatalf("Get after concurrent merge: %v", err)
	}
	for _, name := range names {
		if got[name] != true {
			t.Fatalf("claim %q lost: %v", name, got)
		}
	}
}
