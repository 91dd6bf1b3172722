package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/events"
	"github.com/phrazzld/learnplan-api/internal/notify"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
)

// NotificationEventHandler implements events.EventHandler by turning plan
// events into notification tasks. A full or closed queue drops the task
// with a warning; the emitting operation is never failed by delivery.
type NotificationEventHandler struct {
	queue    TaskQueueWriter
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewNotificationEventHandler creates a handler that enqueues deliveries
// through notifier onto queue.
func NewNotificationEventHandler(
	queue TaskQueueWriter,
	notifier notify.Notifier,
	logger *slog.Logger,
) *NotificationEventHandler {
	if queue == nil {
		panic("task queue cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationEventHandler{
		queue:    queue,
		notifier: notifier,
		logger:   logger.With("component", "notification_event_handler"),
	}
}

// HandleEvent builds the notifications implied by the event and enqueues
// one task per recipient. Unknown event types are ignored.
func (h *NotificationEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	log := logger.FromContextOrDefault(ctx, h.logger).With(
		"event_id", event.ID,
		"event_type", event.Type)

	notifications, err := h.notificationsFor(event)
	if err != nil {
		log.Error("failed to build notifications", "error", err)
		return err
	}
	if notifications == nil {
		log.Debug("ignoring event with unsupported type")
		return nil
	}

	for _, n := range notifications {
		t, err := NewNotificationTask(n, h.notifier, h.logger)
		if err != nil {
			return fmt.Errorf("failed to create notification task: %w", err)
		}
		if err := h.queue.Enqueue(t); err != nil {
			if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
				log.Warn("dropping notification",
					"recipient_id", n.RecipientID,
					"reason", err.Error())
				continue
			}
			return fmt.Errorf("failed to enqueue notification task: %w", err)
		}
	}

	log.Debug("notifications enqueued", "count", len(notifications))
	return nil
}

// notificationsFor returns nil for event types that carry no notification.
func (h *NotificationEventHandler) notificationsFor(event *events.Event) ([]*domain.Notification, error) {
	switch event.Type {
	case events.TypeEnrollmentCreated:
		var p events.EnrollmentPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		return collect(single(p.OwnerID, p.ActorID, domain.NotificationEnrollment, p.PlanID,
			fmt.Sprintf("A learner enrolled in your plan %q", p.PlanTitle)))

	case events.TypeEnrollmentDeleted:
		var p events.EnrollmentPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if p.ActorID == p.OwnerID {
			return collect(single(p.LearnerID, p.ActorID, domain.NotificationUnenrollment, p.PlanID,
				fmt.Sprintf("You were removed from the plan %q", p.PlanTitle)))
		}
		return collect(single(p.OwnerID, p.ActorID, domain.NotificationUnenrollment, p.PlanID,
			fmt.Sprintf("A learner left your plan %q", p.PlanTitle)))

	case events.TypePlanVisibilityChanged:
		var p events.VisibilityChangedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		msg := fmt.Sprintf("The plan %q is now %s", p.PlanTitle, p.To)
		out := make([]recipient, 0, len(p.LearnerIDs))
		for _, learnerID := range p.LearnerIDs {
			out = append(out, single(learnerID, p.OwnerID, domain.NotificationVisibilityChanged, p.PlanID, msg)...)
		}
		return collect(out)
	}
	return nil, nil
}

type recipient struct {
	to, actor uuid.UUID
	kind      domain.NotificationType
	planID    uuid.UUID
	message   string
}

func single(to, actor uuid.UUID, kind domain.NotificationType, planID uuid.UUID, msg string) []recipient {
	return []recipient{{to: to, actor: actor, kind: kind, planID: planID, message: msg}}
}

// collect builds the notifications, skipping any addressed to the actor.
func collect(rs []recipient) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0, len(rs))
	for _, r := range rs {
		n, err := domain.NewNotification(r.to, r.actor, r.kind, r.planID, r.message)
		if errors.Is(err, domain.ErrSelfNotification) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Ensure NotificationEventHandler implements events.EventHandler
var _ events.EventHandler = (*NotificationEventHandler)(nil)
