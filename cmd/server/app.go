package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/phrazzld/learnplan-api/internal/events"
	"github.com/phrazzld/learnplan-api/internal/notify"
	"github.com/phrazzld/learnplan-api/internal/service"
	"github.com/phrazzld/learnplan-api/internal/service/auth"
	"github.com/phrazzld/learnplan-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *appDatabase

	// Service interfaces
	jwtService  auth.JWTService
	planService service.PlanService
	userService service.UserService

	// Event system
	eventEmitter *events.InMemoryEventEmitter

	// Notification delivery
	taskRunner *task.Runner
}

// newApplication creates a new application instance with all dependencies
// initialized. The task runner is created here but only started by Run.
func newApplication(cfg *config.Config, logger *slog.Logger, db *appDatabase) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	notifier, err := setupNotifier(cfg.Notifications, db, logger)
	if err != nil {
		return nil, err
	}

	app.taskRunner = task.NewRunner(task.RunnerConfig{
		QueueSize:   cfg.Notifications.QueueSize,
		WorkerCount: cfg.Notifications.WorkerCount,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(
		task.NewNotificationEventHandler(app.taskRunner.Queue(), notifier, logger))

	app.planService, err = service.NewPlanService(db.tx, app.eventEmitter, service.PlanServiceConfig{
		DefaultPageSize: cfg.Discover.DefaultPageSize,
		MaxPageSize:     cfg.Discover.MaxPageSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan service: %w", err)
	}

	app.userService, err = service.NewUserService(db.tx, auth.NewBcryptVerifier(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	logger.Info("application initialized successfully",
		slog.String("database_driver", cfg.Database.Driver))
	return app, nil
}

// setupNotifier stores every notification in the recipient's inbox and,
// when a webhook URL is configured, also posts it there.
func setupNotifier(cfg config.NotificationsConfig, db *appDatabase, logger *slog.Logger) (notify.Notifier, error) {
	notifiers := notify.MultiNotifier{
		notify.NewStoreNotifier(db.tx.Stores().Notifications, logger),
	}
	if cfg.WebhookURL == "" {
		return notifiers, nil
	}

	webhook, err := notify.NewWebhookNotifier(notify.WebhookConfig{
		URL:     cfg.WebhookURL,
		Timeout: cfg.WebhookTimeout,
		Retries: cfg.WebhookRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook notifier: %w", err)
	}
	logger.Info("webhook notifications enabled")
	return append(notifiers, webhook), nil
}

// Run starts the background workers and the HTTP server, and blocks until
// ctx is canceled or the server fails.
func (app *application) Run(ctx context.Context) error {
	app.taskRunner.Start()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup drains queued notifications and closes the database.
func (app *application) cleanup(ctx context.Context) {
	if app.taskRunner != nil {
		if err := app.taskRunner.Stop(ctx); err != nil {
			app.logger.Warn("pending notifications were dropped", slog.String("error", err.Error()))
		}
	}
	app.db.close()
	app.logger.Info("application shutdown completed")
}
