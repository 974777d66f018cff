package itest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/outstationguru/og-api/internal/domain"
)

var externalIDPattern = regexp.MustCompile(`^OG[CDPAO][0-9]{6,}$`)

type ensureUserResponse struct {
	OK   bool   `json:"ok"`
	UID  string `json:"uid"`
	Role string `json:"role"`
	ID   string `json:"id"`
}

func TestEnsureUser_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			subject := "itest|" + uuid.NewString()

			// No credential => 401
			{
				status, body, hdr := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", "", map[string]any{}, nil)
				requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHENTICATED")
				requireHeaderPresent(t, hdr, "Content-Type")
			}

			// Unknown role => 400
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", subject, map[string]any{"role": "pilot"}, nil)
				requireErrorCode(t, status, body, http.StatusBadRequest, "VALIDATION_ERROR")
			}

			var driver ensureUserResponse
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", subject, map[string]any{
					"role":        "driver",
					"displayName": "Ravi",
				}, nil)
				requireStatus(t, status, body, http.StatusOK)
				driver = mustUnmarshal[ensureUserResponse](t, body)
				if driver.UID != subject || driver.Role != "driver" || !externalIDPattern.MatchString(driver.ID) || !strings.HasPrefix(driver.ID, "OGD") {
					t.Fatalf("driver=%+v", driver)
				}
			}

			// Repeat returns the same id.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", subject, map[string]any{"role": "driver"}, nil)
				requireStatus(t, status, body, http.StatusOK)
				again := mustUnmarshal[ensureUserResponse](t, body)
				if again.ID != driver.ID {
					t.Fatalf("id changed: %q -> %q", driver.ID, again.ID)
				}
			}

			// A second role gets its own id from its own sequence.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", subject, nil, nil)
				requireStatus(t, status, body, http.StatusOK)
				cust := mustUnmarshal[ensureUserResponse](t, body)
				if cust.Role != "customer" || !strings.HasPrefix(cust.ID, "OGC") {
					t.Fatalf("customer=%+v", cust)
				}
			}

			if err := srv.dispatcher.Drain(context.Background()); err != nil {
				t.Fatalf("Drain: %v", err)
			}
			c, err := srv.claims.Get(context.Background(), domain.SubjectID(subject))
			if err != nil {
				t.Fatalf("claims Get: %v", err)
			}
			if c["driver"] != true || c["customer"] != true {
				t.Fatalf("claims=%v", c)
			}
		})
	}
}

func TestEnsureUser_ConcurrentSameSubject_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			subject := "itest|" + uuid.NewString()

			const n = 10
			ids := make([]string, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", subject, map[string]any{"role": "partner"}, nil)
					if status != http.StatusOK {
						t.Errorf("status=%d body=%s", status, string(body))
						return
					}
					var got ensureUserResponse
					if err := json.Unmarshal(body, &got); err != nil {
						t.Errorf("unmarshal: %v", err)
						return
					}
					ids[i] = got.ID
				}(i)
			}
			wg.Wait()

			for _, id := range ids {
				if id != ids[0] {
					t.Fatalf("divergent ids for one subject: %v", ids)
				}
			}
		})
	}
}

func TestPhoneSignIn_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			phone := fmt.Sprintf("+91 9%09d", uuid.New().ID()%1_000_000_000)

			status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", "", map[string]any{"phone": phone}, nil)
			requireStatus(t, status, body, http.StatusOK)
			first := mustUnmarshal[ensureUserResponse](t, body)

			status, body, _ = srv.doJSON(t, http.MethodPost, "/api/v1/auth/ensureUser", "", map[string]any{"phone": phone}, nil)
			requireStatus(t, status, body, http.StatusOK)
			second := mustUnmarshal[ensureUserResponse](t, body)
			if first.UID == "" || first.UID != second.UID || first.ID != second.ID {
				t.Fatalf("first=%+v second=%+v", first, second)
			}
		})
	}
}

func TestQuoteAndDraft_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)

			var quote struct {
				OK       bool    `json:"ok"`
				Currency string  `json:"currency"`
				Total    float64 `json:"total"`
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/fares/quote", "", map[string]any{
					"origin":      "Pune",
					"destination": "Mumbai",
					"vehicleType": "suv",
				}, nil)
				requireStatus(t, status, body, http.StatusOK)
				quote = mustUnmarshal[struct {
					OK       bool    `json:"ok"`
					Currency string  `json:"currency"`
					Total    float64 `json:"total"`
				}](t, body)
				if quote.Total != 1943 || quote.Currency != "INR" {
					t.Fatalf("quote=%+v", quote)
				}
			}

			key := map[string]string{"Idempotency-Key": uuid.NewString()}
			draft := map[string]any{
				"pickup":      "Pune",
				"drop":        "Mumbai",
				"when":        "2026-11-01T06:00:00+05:30",
				"vehicleType": "suv",
				"quoteTotal":  quote.Total,
			}
			var rideID string
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/rides/createDraft", "", draft, key)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[struct {
					RideID string `json:"rideId"`
					Status string `json:"status"`
				}](t, body)
				if got.RideID == "" || got.Status != "draft" {
					t.Fatalf("draft=%+v", got)
				}
				rideID = got.RideID
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/rides/createDraft", "", draft, key)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[struct {
					RideID string `json:"rideId"`
				}](t, body)
				if got.RideID != rideID {
					t.Fatalf("replay returned %q, want %q", got.RideID, rideID)
				}
			}
			{
				draft["drop"] = "Goa"
				status, body, _ := srv.doJSON(t, http.MethodPost, "/api/v1/rides/createDraft", "", draft, key)
				requireErrorCode(t, status, body, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")
			}
		})
	}
}
