package httpapi

import (
	"net/http"
	"strings"
)

// BearerTokenMiddleware copies a bearer token from the Authorization header into the
// request context. It never rejects a request: verification happens in the identity
// resolver, which treats a bad token the same as a missing one.
func BearerTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r.Header.Get("Authorization")); ok {
			r = r.WithContext(WithBearerToken(r.Context(), raw))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(authz string) (string, bool) {
	const prefix = "bearer "
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(authz[len(prefix):])
	return raw, raw != ""
}
