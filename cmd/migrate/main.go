package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/outstationguru/og-api/internal/adapters/postgres/migrate"
	"github.com/outstationguru/og-api/internal/platform/config"
	"github.com/outstationguru/og-api/internal/platform/logging"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		Env:       cfg.Env,
		Level:     cfg.LogLevel,
		Service:   "migrate",
		ProjectID: cfg.ProjectID,
	})

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		logger.Error("migration failed", "direction", *direction, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "direction", *direction)
}
