package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/notify"
)

// Common errors
var (
	ErrNilNotifier     = errors.New("notifier cannot be nil")
	ErrNilNotification = errors.New("notification cannot be nil")
)

// NotificationTask implements the Task interface for delivering one
// notification through a notifier.
type NotificationTask struct {
	id           uuid.UUID
	notification *domain.Notification
	notifier     notify.Notifier
	logger       *slog.Logger

	mu     sync.RWMutex
	status TaskStatus
}

// NewNotificationTask creates a pending delivery task.
func NewNotificationTask(
	n *domain.Notification,
	notifier notify.Notifier,
	logger *slog.Logger,
) (*NotificationTask, error) {
	if n == nil {
		return nil, ErrNilNotification
	}
	if notifier == nil {
		return nil, ErrNilNotifier
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &NotificationTask{
		id:           uuid.New(),
		notification: n,
		notifier:     notifier,
		logger: logger.With(
			"task_type", TaskTypeNotification,
			"notification_id", n.ID,
			"notification_type", n.Type),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *NotificationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *NotificationTask) Type() string {
	return TaskTypeNotification
}

// Payload returns the notification encoded as JSON
func (t *NotificationTask) Payload() []byte {
	data, err := json.Marshal(t.notification)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *NotificationTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Notification returns the notification being delivered.
func (t *NotificationTask) Notification() *domain.Notification {
	return t.notification
}

func (t *NotificationTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute delivers the notification.
func (t *NotificationTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	if err := ctx.Err(); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.notifier.Notify(ctx, t.notification); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to deliver notification: %w", err)
	}

	t.setStatus(TaskStatusCompleted)
	t.logger.Debug("notification delivered",
		"recipient_id", t.notification.RecipientID)
	return nil
}
