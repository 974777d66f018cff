package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerTokenMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{name: "missing", header: "", wantOK: false},
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi", wantOK: true},
		{name: "lowercase scheme", header: "bearer tok", want: "tok", wantOK: true},
		{name: "padded", header: "Bearer    tok  ", want: "tok", wantOK: true},
		{name: "empty token", header: "Bearer ", wantOK: false},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantOK: false},
		{name: "no space", header: "Bearertok", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				got    string
				gotOK  bool
				called bool
			)
			h := BearerTokenMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got, gotOK = BearerTokenFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/ensureUser", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if !called || rr.Code != http.StatusNoContent {
				t.Fatalf("request was not passed through: code=%d", rr.Code)
			}
			if gotOK != tt.wantOK || got != tt.want {
				t.Fatalf("token=%q ok=%v, want %q ok=%v", got, gotOK, tt.want, tt.wantOK)
			}
		})
	}
}
