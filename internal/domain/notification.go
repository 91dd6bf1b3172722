package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies why a notification was sent.
type NotificationType string

// Notification types emitted by the plan engine.
const (
	NotificationEnrollment        NotificationType = "ENROLLMENT"
	NotificationUnenrollment      NotificationType = "UNENROLLMENT"
	NotificationVisibilityChanged NotificationType = "VISIBILITY_CHANGED"
)

// ErrSelfNotification is returned when a notification would be sent to the
// user who caused it.
var ErrSelfNotification = fmt.Errorf("%w: recipient is the actor", ErrValidation)

// Notification is a delivered message about plan activity.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	ActorID     uuid.UUID        `json:"actor_id"`
	Type        NotificationType `json:"type"`
	PlanID      uuid.UUID        `json:"plan_id"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewNotification creates a notification. Users are never notified about
// their own actions.
func NewNotification(
	recipientID, actorID uuid.UUID,
	kind NotificationType,
	planID uuid.UUID,
	message string,
) (*Notification, error) {
	if recipientID == uuid.Nil {
		return nil, NewValidationError("recipient_id", "is required", ErrInvalidID)
	}
	if recipientID == actorID {
		return nil, ErrSelfNotification
	}
	return &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        kind,
		PlanID:      planID,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
