package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outstationguru/og-api/internal/adapters/httpapi"
	kafkaclaimsqueue "github.com/outstationguru/og-api/internal/adapters/kafka/claimsqueue"
	memaccountrepo "github.com/outstationguru/og-api/internal/adapters/memory/accountrepo"
	memclaimstore "github.com/outstationguru/og-api/internal/adapters/memory/claimstore"
	memcounterrepo "github.com/outstationguru/og-api/internal/adapters/memory/counterrepo"
	memidempotency "github.com/outstationguru/og-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/outstationguru/og-api/internal/adapters/memory/profilerepo"
	memriderepo "github.com/outstationguru/og-api/internal/adapters/memory/riderepo"
	postgres "github.com/outstationguru/og-api/internal/adapters/postgres"
	pgaccountrepo "github.com/outstationguru/og-api/internal/adapters/postgres/accountrepo"
	pgcounterrepo "github.com/outstationguru/og-api/internal/adapters/postgres/counterrepo"
	pgidempotency "github.com/outstationguru/og-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/outstationguru/og-api/internal/adapters/postgres/profilerepo"
	pgriderepo "github.com/outstationguru/og-api/internal/adapters/postgres/riderepo"
	redisadapter "github.com/outstationguru/og-api/internal/adapters/redis"
	redisclaimstore "github.com/outstationguru/og-api/internal/adapters/redis/claimstore"
	"github.com/outstationguru/og-api/internal/app/claims"
	"github.com/outstationguru/og-api/internal/app/identity"
	"github.com/outstationguru/og-api/internal/app/profiles"
	"github.com/outstationguru/og-api/internal/app/rides"
	"github.com/outstationguru/og-api/internal/app/users"
	"github.com/outstationguru/og-api/internal/platform/auth/devverifier"
	"github.com/outstationguru/og-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/outstationguru/og-api/internal/platform/clock"
	"github.com/outstationguru/og-api/internal/platform/config"
	"github.com/outstationguru/og-api/internal/platform/logging"
	accountrepoport "github.com/outstationguru/og-api/internal/ports/out/accountrepo"
	claimsqueueport "github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
	claimstoreport "github.com/outstationguru/og-api/internal/ports/out/claimstore"
	counterrepoport "github.com/outstationguru/og-api/internal/ports/out/counterrepo"
	idempotencyport "github.com/outstationguru/og-api/internal/ports/out/idempotency"
	profilerepoport "github.com/outstationguru/og-api/internal/ports/out/profilerepo"
	riderepoport "github.com/outstationguru/og-api/internal/ports/out/riderepo"
	"github.com/outstationguru/og-api/internal/ports/out/tokenverifier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		Env:       cfg.Env,
		Level:     cfg.LogLevel,
		Service:   cfg.ServiceName,
		ProjectID: cfg.ProjectID,
	})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()

	// Auth configuration:
	// - jwt: verify RS256 bearer tokens against JWT_JWKS_URL
	// - dev: the bearer token is taken as the subject (never in prod)
	var verifier tokenverifier.Verifier
	switch cfg.AuthMode {
	case "dev":
		verifier = devverifier.New()
		logger.Warn("AUTH_MODE=dev: bearer tokens are not verified")
	default:
		verifier = jwtverifier.New(cfg.JWT)
	}

	var (
		counterRepo counterrepoport.Repository
		profileRepo profilerepoport.Repository
		accountRepo accountrepoport.Repository
		rideRepo    riderepoport.Repository
		idemStore   idempotencyport.Store
	)
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()

		counterRepo = pgcounterrepo.NewRepo(pool, cfg.TxMaxAttempts)
		profileRepo = pgprofilerepo.NewRepo(pool, cfg.TxMaxAttempts)
		accountRepo = pgaccountrepo.NewRepo(pool)
		rideRepo = pgriderepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, cfg.IdempotencyTTL)
	default:
		counterRepo = memcounterrepo.NewRepo()
		profileRepo = memprofilerepo.NewRepo()
		accountRepo = memaccountrepo.NewRepo(clk)
		rideRepo = memriderepo.NewRepo()
		idemStore = memidempotency.NewStoreWithOptions(cfg.IdempotencyTTL, clk)
	}

	var claimStore claimstoreport.Store
	switch cfg.ClaimsBackend {
	case "redis":
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		claimStore = redisclaimstore.NewStore(client)
	default:
		claimStore = memclaimstore.NewStore()
	}

	var queue claimsqueueport.Queue
	switch cfg.ClaimsQueue {
	case "kafka":
		w, err := kafkaclaimsqueue.NewWriter(cfg.KafkaBrokerList(), cfg.ClaimsKafkaTopic)
		if err != nil {
			return err
		}
		defer w.Close()
		queue = w
	default:
		queue = claims.NewLocalQueue(claims.NewSynchronizer(claimStore), cfg.ClaimsSyncAttempts, 200*time.Millisecond)
	}
	dispatcher := claims.NewDispatcher(queue, cfg.ClaimsSyncTimeout, logger)

	resolver := identity.NewResolver(verifier, accountRepo, logger)
	engine := profiles.NewEngine(profileRepo, counterRepo, clk, logger)
	usersSvc := users.NewService(resolver, engine, dispatcher)
	ridesSvc := rides.NewService(rideRepo, clk)

	api := httpapi.NewServer(usersSvc, ridesSvc, idemStore, clk, httpapi.ServiceInfo{
		Service:   cfg.ServiceName,
		ProjectID: cfg.ProjectID,
	}, logger)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening",
			"port", cfg.Port,
			"storage", cfg.StorageBackend,
			"claims_backend", cfg.ClaimsBackend,
			"claims_queue", cfg.ClaimsQueue,
			"auth_mode", cfg.AuthMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := dispatcher.Drain(shutdownCtx); err != nil {
		logger.Warn("claims sync still in flight at shutdown", "error", err)
	}
	return nil
}
