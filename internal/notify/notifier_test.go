package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotification(t *testing.T) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(uuid.New(), uuid.New(), domain.NotificationEnrollment, uuid.New(), "Ada enrolled in Go basics")
	require.NoError(t, err)
	return n
}

func TestStoreNotifier_Persists(t *testing.T) {
	db := memory.NewDB(4, nil)
	notifier := NewStoreNotifier(db.Stores().Notifications, nil)
	n := newNotification(t)

	require.NoError(t, notifier.Notify(context.Background(), n))

	got, err := db.Stores().Notifications.ListByRecipient(context.Background(), n.RecipientID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, n.ID, got[0].ID)
	assert.Equal(t, n.Message, got[0].Message)
}

func TestNewStoreNotifier_NilStorePanics(t *testing.T) {
	assert.Panics(t, func() { NewStoreNotifier(nil, nil) })
}

func TestMultiNotifier(t *testing.T) {
	n := newNotification(t)
	boom := errors.New("boom")
	var calls []string

	m := MultiNotifier{
		NotifierFunc(func(ctx context.Context, got *domain.Notification) error {
			calls = append(calls, "first")
			return boom
		}),
		NotifierFunc(func(ctx context.Context, got *domain.Notification) error {
			calls = append(calls, "second")
			assert.Equal(t, n, got)
			return nil
		}),
	}

	err := m.Notify(context.Background(), n)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.NoError(t, MultiNotifier{}.Notify(context.Background(), n))
}
