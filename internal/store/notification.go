package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
type NotificationStore interface {
	// Create saves a delivered notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByRecipient returns up to limit notifications for the recipient,
	// newest first.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*domain.Notification, error)
}
