// Package notify delivers plan activity notifications to users.
//
// Delivery is best effort. Notifiers are invoked from the task worker pool
// after the triggering unit of work has committed, so a failed delivery
// never affects the operation that caused it.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// StoreNotifier persists notifications so recipients can list them later.
type StoreNotifier struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewStoreNotifier creates a notifier backed by the notification store.
func NewStoreNotifier(notifications store.NotificationStore, logger *slog.Logger) *StoreNotifier {
	if notifications == nil {
		panic("notifications store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreNotifier{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "store_notifier")),
	}
}

// Notify implements Notifier.
func (n *StoreNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, n.logger)

	if err := n.notifications.Create(ctx, notification); err != nil {
		log.Error("failed to store notification",
			slog.String("notification_id", notification.ID.String()),
			slog.String("recipient_id", notification.RecipientID.String()),
			slog.String("error", err.Error()))
		return err
	}

	log.Debug("notification stored",
		slog.String("notification_id", notification.ID.String()),
		slog.String("type", string(notification.Type)))
	return nil
}

// MultiNotifier fans a notification out to several notifiers. Every notifier
// is attempted; the failures are joined.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n *domain.Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n *domain.Notification) error {
	return f(ctx, n)
}
