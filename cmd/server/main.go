// Package main implements the entry point for the learning plan API server,
// which lets users author learning plans, enroll in other users' plans and
// track their progress through the topics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger, *migrateCmd); err != nil {
		appLogger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run opens the backing store and either executes a migration command or
// serves HTTP until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrateCmd string) error {
	db, err := setupAppDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer db.close()
		return db.migrate(ctx, migrateCmd)
	}

	app, err := newApplication(cfg, logger, db)
	if err != nil {
		db.close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// loadAppConfig loads the application configuration from environment
// variables, an optional .env file and an optional config.yaml.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
