// Package config resolves process configuration once, from an optional .env file and the
// environment, into an immutable Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config is resolved at startup and passed by value or pointer to constructors.
// Nothing reads the environment after Load returns.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	ProjectID   string `mapstructure:"PROJECT_ID"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// AuthMode is "jwt" (verify bearer tokens against JWKS) or "dev" (token is the subject).
	AuthMode string `mapstructure:"AUTH_MODE"`
	JWT      JWTConfig

	StorageBackend string        `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	TxMaxAttempts  int           `mapstructure:"DB_TX_MAX_ATTEMPTS"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	ClaimsBackend      string        `mapstructure:"CLAIMS_BACKEND"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	ClaimsQueue        string        `mapstructure:"CLAIMS_QUEUE"`
	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS"`
	ClaimsKafkaTopic   string        `mapstructure:"CLAIMS_KAFKA_TOPIC"`
	KafkaGroupID       string        `mapstructure:"KAFKA_GROUP_ID"`
	ClaimsSyncTimeout  time.Duration `mapstructure:"CLAIMS_SYNC_TIMEOUT"`
	ClaimsSyncAttempts int           `mapstructure:"CLAIMS_SYNC_ATTEMPTS"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present), then the environment, applies defaults and validates.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // a missing .env is fine
	}
	v.AutomaticEnv()

	// The first variable set wins.
	_ = v.BindEnv("APP_ENV", "APP_ENV", "OG_ENV")
	_ = v.BindEnv("PROJECT_ID", "PROJECT_ID", "FIREBASE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT")

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", EnvDev)
	v.SetDefault("SERVICE_NAME", "api")
	v.SetDefault("PROJECT_ID", "og-guru-dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_MODE", "jwt")
	v.SetDefault("STORAGE_BACKEND", "memory")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 0)
	v.SetDefault("DB_TX_MAX_ATTEMPTS", 10)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("CLAIMS_BACKEND", "memory")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CLAIMS_QUEUE", "local")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CLAIMS_KAFKA_TOPIC", "og-claims-sync")
	v.SetDefault("KAFKA_GROUP_ID", "og-claims-worker")
	v.SetDefault("CLAIMS_SYNC_TIMEOUT", "5s")
	v.SetDefault("CLAIMS_SYNC_ATTEMPTS", 3)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.AuthMode == "jwt" {
		jwtCfg, err := loadJWTConfig(v)
		if err != nil {
			return nil, err
		}
		cfg.JWT = jwtCfg
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("config: PORT must be set"))
	}
	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("config: APP_ENV must be dev, stage or prod, got %q", c.Env))
	}
	switch c.AuthMode {
	case "jwt":
	case "dev":
		if c.Env == EnvProd {
			errs = append(errs, errors.New("config: AUTH_MODE=dev is not allowed when APP_ENV=prod"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: AUTH_MODE must be jwt or dev, got %q", c.AuthMode))
	}
	switch c.StorageBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: STORAGE_BACKEND must be memory or postgres, got %q", c.StorageBackend))
	}
	switch c.ClaimsBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("config: REDIS_URL is required when CLAIMS_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: CLAIMS_BACKEND must be memory or redis, got %q", c.ClaimsBackend))
	}
	switch c.ClaimsQueue {
	case "local":
	case "kafka":
		if len(c.KafkaBrokerList()) == 0 {
			errs = append(errs, errors.New("config: KAFKA_BROKERS is required when CLAIMS_QUEUE=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: CLAIMS_QUEUE must be local or kafka, got %q", c.ClaimsQueue))
	}
	if c.TxMaxAttempts < 1 {
		errs = append(errs, errors.New("config: DB_TX_MAX_ATTEMPTS must be at least 1"))
	}
	if c.ClaimsSyncAttempts < 1 {
		errs = append(errs, errors.New("config: CLAIMS_SYNC_ATTEMPTS must be at least 1"))
	}
	if c.ClaimsSyncTimeout <= 0 {
		errs = append(errs, errors.New("config: CLAIMS_SYNC_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// KafkaBrokerList splits KAFKA_BROKERS on commas.
func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
