package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaclaimsqueue "github.com/outstationguru/og-api/internal/adapters/kafka/claimsqueue"
	memclaimstore "github.com/outstationguru/og-api/internal/adapters/memory/claimstore"
	redisadapter "github.com/outstationguru/og-api/internal/adapters/redis"
	redisclaimstore "github.com/outstationguru/og-api/internal/adapters/redis/claimstore"
	"github.com/outstationguru/og-api/internal/app/claims"
	"github.com/outstationguru/og-api/internal/platform/config"
	"github.com/outstationguru/og-api/internal/platform/logging"
	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
	claimstoreport "github.com/outstationguru/og-api/internal/ports/out/claimstore"
)

// claimsworker consumes claim sync jobs published by the api when CLAIMS_QUEUE=kafka.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		Env:       cfg.Env,
		Level:     cfg.LogLevel,
		Service:   "claimsworker",
		ProjectID: cfg.ProjectID,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("claimsworker exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store claimstoreport.Store
	switch cfg.ClaimsBackend {
	case "redis":
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		store = redisclaimstore.NewStore(client)
	default:
		logger.Warn("CLAIMS_BACKEND=memory: claims written by this worker are not shared")
		store = memclaimstore.NewStore()
	}
	syncer := claims.NewSynchronizer(store)

	reader := kafkaclaimsqueue.NewReader(kafkaclaimsqueue.ReaderConfig{
		Brokers: brokers,
		Topic:   cfg.ClaimsKafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer reader.Close()

	logger.Info("claimsworker consuming", "topic", cfg.ClaimsKafkaTopic, "group", cfg.KafkaGroupID)
	err := kafkaclaimsqueue.Consume(ctx, reader, cfg.ClaimsSyncTimeout, logger, func(ctx context.Context, job claimsqueue.Job) error {
		return syncer.Sync(ctx, job.Subject, job.Role)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
