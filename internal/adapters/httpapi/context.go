package httpapi

import "context"

type bearerTokenKey struct{}

func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// BearerTokenFromContext returns the unverified bearer token the caller presented.
func BearerTokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(bearerTokenKey{}).(string)
	return v, ok && v != ""
}
