package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func loadJWTConfig(v *viper.Viper) (JWTConfig, error) {
	// Refresh periodically to pick up key rotation even if an old key is still cached,
	// and bound refresh frequency when a token presents an unknown kid.
	v.SetDefault("JWT_CLOCK_SKEW", "30s")
	v.SetDefault("JWT_JWKS_REFRESH_INTERVAL", "5m")
	v.SetDefault("JWT_JWKS_MIN_REFRESH_INTERVAL", "10s")
	v.SetDefault("JWT_HTTP_TIMEOUT", "5s")

	cfg := JWTConfig{
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
		JWKSURL:  v.GetString("JWT_JWKS_URL"),
	}
	if cfg.Issuer == "" || cfg.Audience == "" || cfg.JWKSURL == "" {
		return JWTConfig{}, fmt.Errorf("config: AUTH_MODE=jwt requires JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_CLOCK_SKEW", &cfg.ClockSkew},
		{"JWT_JWKS_REFRESH_INTERVAL", &cfg.JWKSRefreshInterval},
		{"JWT_JWKS_MIN_REFRESH_INTERVAL", &cfg.JWKSMinRefreshInterval},
		{"JWT_HTTP_TIMEOUT", &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return JWTConfig{}, fmt.Errorf("config: %s must be a duration (e.g. 30s): %w", d.key, err)
		}
		*d.dst = parsed
	}
	return cfg, nil
}
