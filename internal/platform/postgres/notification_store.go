package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of the NotificationStore interface.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

// Ensure PostgresNotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create implements store.NotificationStore.Create
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, actor_id, type, plan_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.RecipientID, n.ActorID, string(n.Type), n.PlanID, n.Message, n.CreatedAt)
	if err != nil {
		log.Error("failed to store notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()),
			slog.String("recipient_id", n.RecipientID.String()))
		return MapError(err)
	}
	return nil
}

// ListByRecipient implements store.NotificationStore.ListByRecipient
func (s *PostgresNotificationStore) ListByRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// LIMIT NULL means no limit
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, actor_id, type, plan_id, message, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, recipientID, limitArg)
	if err != nil {
		log.Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipientID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		var (
			n    domain.Notification
			kind string
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &kind, &n.PlanID, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(kind)
		out = append(out, &n)
	}
	return out, rows.Err()
}
