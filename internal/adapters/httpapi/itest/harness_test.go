package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/outstationguru/og-api/internal/adapters/httpapi"
	memaccountrepo "github.com/outstationguru/og-api/internal/adapters/memory/accountrepo"
	memclaimstore "github.com/outstationguru/og-api/internal/adapters/memory/claimstore"
	memclock "github.com/outstationguru/og-api/internal/adapters/memory/clock"
	memcounterrepo "github.com/outstationguru/og-api/internal/adapters/memory/counterrepo"
	memidempotency "github.com/outstationguru/og-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/outstationguru/og-api/internal/adapters/memory/profilerepo"
	memriderepo "github.com/outstationguru/og-api/internal/adapters/memory/riderepo"
	pgaccountrepo "github.com/outstationguru/og-api/internal/adapters/postgres/accountrepo"
	pgcounterrepo "github.com/outstationguru/og-api/internal/adapters/postgres/counterrepo"
	pgidempotency "github.com/outstationguru/og-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/outstationguru/og-api/internal/adapters/postgres/profilerepo"
	pgriderepo "github.com/outstationguru/og-api/internal/adapters/postgres/riderepo"
	postgres_testutil "github.com/outstationguru/og-api/internal/adapters/postgres/testutil"
	"github.com/outstationguru/og-api/internal/app/claims"
	"github.com/outstationguru/og-api/internal/app/identity"
	"github.com/outstationguru/og-api/internal/app/profiles"
	"github.com/outstationguru/og-api/internal/app/rides"
	"github.com/outstationguru/og-api/internal/app/users"
	"github.com/outstationguru/og-api/internal/platform/auth/devverifier"
	"github.com/outstationguru/og-api/internal/platform/logging"
	accountrepoport "github.com/outstationguru/og-api/internal/ports/out/accountrepo"
	counterrepoport "github.com/outstationguru/og-api/internal/ports/out/counterrepo"
	idempotencyport "github.com/outstationguru/og-api/internal/ports/out/idempotency"
	profilerepoport "github.com/outstationguru/og-api/internal/ports/out/profilerepo"
	riderepoport "github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL    string
	client     *http.Client
	claims     *memclaimstore.Store
	dispatcher *claims.Dispatcher
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := logging.Discard()

	var (
		counterRepo counterrepoport.Repository
		profileRepo profilerepoport.Repository
		accountRepo accountrepoport.Repository
		rideRepo    riderepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		counterRepo = pgcounterrepo.NewRepo(pool, 50)
		profileRepo = pgprofilerepo.NewRepo(pool, 50)
		accountRepo = pgaccountrepo.NewRepo(pool)
		rideRepo = pgriderepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, time.Hour)
	case backendMemory:
		counterRepo = memcounterrepo.NewRepo()
		profileRepo = memprofilerepo.NewRepo()
		accountRepo = memaccountrepo.NewRepo(clk)
		rideRepo = memriderepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	claimStore := memclaimstore.NewStore()
	dispatcher := claims.NewDispatcher(claims.NewLocalQueue(claims.NewSynchronizer(claimStore), 2, time.Millisecond), time.Second, logger)

	// Integration tests use the dev verifier to stay fully local and deterministic:
	// the bearer token is the subject.
	resolver := identity.NewResolver(devverifier.New(), accountRepo, logger)
	engine := profiles.NewEngine(profileRepo, counterRepo, clk, logger)
	usersSvc := users.NewService(resolver, engine, dispatcher)
	ridesSvc := rides.NewService(rideRepo, clk)

	api := httpapi.NewServer(usersSvc, ridesSvc, idemStore, clk, httpapi.ServiceInfo{Service: "api", ProjectID: "og-guru-itest"}, logger)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{Logger: logger, CORSOrigins: []string{"*"}})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL:    srv.URL,
		client:     srv.Client(),
		claims:     claimStore,
		dispatcher: dispatcher,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, hdr map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	OK    bool `json:"ok"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.OK || got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
