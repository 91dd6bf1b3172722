package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnrollmentStartsEmpty(t *testing.T) {
	e, err := NewEnrollment(uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, e.CompletedTopicIDs)
	assert.Empty(t, e.CompletedTopicIDs)

	_, err = NewEnrollment(uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, ErrEmptyEnrollmentPlan)
	_, err = NewEnrollment(uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, ErrEmptyEnrollmentLearner)
}

func TestEnrollmentMarkTopicIsIdempotent(t *testing.T) {
	e, err := NewEnrollment(uuid.New(), uuid.New())
	require.NoError(t, err)
	topicID := uuid.New()
	t1 := e.LastActivityAt.Add(time.Minute)

	assert.True(t, e.MarkTopic(topicID, true, t1))
	assert.Equal(t, t1, e.LastActivityAt)
	assert.False(t, e.MarkTopic(topicID, true, t1.Add(time.Minute)))
	assert.Equal(t, t1, e.LastActivityAt, "no-op must not count as activity")
	assert.Len(t, e.CompletedTopicIDs, 1)

	assert.True(t, e.MarkTopic(topicID, false, t1.Add(2*time.Minute)))
	assert.False(t, e.MarkTopic(topicID, false, t1.Add(3*time.Minute)))
	assert.Empty(t, e.CompletedTopicIDs)
}

func TestEnrollmentPruneAndClone(t *testing.T) {
	e, err := NewEnrollment(uuid.New(), uuid.New())
	require.NoError(t, err)
	a, b := uuid.New(), uuid.New()
	e.MarkTopic(a, true, time.Now())
	e.MarkTopic(b, true, time.Now())

	c := e.Clone()
	e.PruneTopic(a)

	assert.Equal(t, []uuid.UUID{b}, e.CompletedTopicIDs)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, c.CompletedTopicIDs)
}

func TestNewNotificationRejectsSelf(t *testing.T) {
	user := uuid.New()
	_, err := NewNotification(user, user, NotificationEnrollment, uuid.New(), "hi")
	assert.ErrorIs(t, err, ErrSelfNotification)

	n, err := NewNotification(uuid.New(), user, NotificationEnrollment, uuid.New(), "hi")
	require.NoError(t, err)
	assert.Equal(t, NotificationEnrollment, n.Type)
}
