package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := EnrollmentPayload{
		EnrollmentID: uuid.New(),
		PlanID:       uuid.New(),
		PlanTitle:    "Go concurrency",
		OwnerID:      uuid.New(),
		LearnerID:    uuid.New(),
	}
	payload.ActorID = payload.LearnerID

	event, err := NewEvent(TypeEnrollmentCreated, payload)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeEnrollmentCreated, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded EnrollmentPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEvent_VisibilityPayload(t *testing.T) {
	payload := VisibilityChangedPayload{
		PlanID:     uuid.New(),
		PlanTitle:  "Compilers",
		OwnerID:    uuid.New(),
		From:       domain.VisibilityPublic,
		To:         domain.VisibilityPrivate,
		LearnerIDs: []uuid.UUID{uuid.New(), uuid.New()},
	}

	event, err := NewEvent(TypePlanVisibilityChanged, payload)
	require.NoError(t, err)

	var decoded VisibilityChangedPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent("broken", map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandler(t *testing.T) {
	handler := &MockEventHandler{}

	event, err := NewEvent(TypeEnrollmentDeleted, EnrollmentPayload{EnrollmentID: uuid.New(), PlanTitle: "Raft"})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, 1, handler.HandledCount)
	assert.Equal(t, event, handler.LastEvent)

	expectedErr := errors.New("handler error")
	handler.HandlerError = expectedErr
	err = handler.HandleEvent(context.Background(), event)
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 2, handler.HandledCount)
}

func TestNopEmitter(t *testing.T) {
	event, err := NewEvent(TypeEnrollmentCreated, struct{}{})
	require.NoError(t, err)
	assert.NoError(t, NopEmitter{}.EmitEvent(context.Background(), event))
}
