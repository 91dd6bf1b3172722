package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// NotificationStore implements store.NotificationStore in memory.
type NotificationStore struct {
	sess *session
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// Create implements store.NotificationStore.Create.
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	c := *n
	st.notifications = append(st.notifications, &c)
	return nil
}

// ListByRecipient implements store.NotificationStore.ListByRecipient.
func (s *NotificationStore) ListByRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	out := make([]*domain.Notification, 0)
	// appended in delivery order, so walk backwards for newest first
	for i := len(st.notifications) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if n := st.notifications[i]; n.RecipientID == recipientID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}
