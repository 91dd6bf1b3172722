package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/phrazzld/learnplan-api/internal/platform/memory"
	"github.com/phrazzld/learnplan-api/internal/platform/postgres"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// appDatabase is the configured backing store. sqlDB is nil for the memory
// driver.
type appDatabase struct {
	tx     store.TxManager
	sqlDB  *sql.DB
	logger *slog.Logger
}

// setupAppDatabase opens the backend selected by cfg.Database.Driver. For
// postgres it configures the connection pool, pings the server and applies
// pending migrations when AutoMigrate is set.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*appDatabase, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return &appDatabase{
			tx:     memory.NewDB(cfg.Auth.BCryptCost, logger),
			logger: logger,
		}, nil
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("database connection established",
		slog.Int("max_open_conns", cfg.Database.MaxOpenConns))

	appDB := &appDatabase{
		tx:     postgres.NewTxManager(db, cfg.Auth.BCryptCost, logger),
		sqlDB:  db,
		logger: logger,
	}
	if cfg.Database.AutoMigrate {
		if err := appDB.migrate(ctx, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return appDB, nil
}

// migrate runs a goose command. The memory driver has no schema.
func (d *appDatabase) migrate(ctx context.Context, command string) error {
	if d.sqlDB == nil {
		return fmt.Errorf("migrations require the postgres driver")
	}
	if err := postgres.Migrate(ctx, d.sqlDB, command, d.logger); err != nil {
		return fmt.Errorf("migration %q failed: %w", command, err)
	}
	return nil
}

func (d *appDatabase) close() {
	if d.sqlDB == nil {
		return
	}
	if err := d.sqlDB.Close(); err != nil {
		d.logger.Error("error closing database connection", slog.String("error", err.Error()))
	}
}
