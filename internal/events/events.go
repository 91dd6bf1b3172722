package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// Event types emitted by the plan engine after a unit of work commits.
const (
	TypeEnrollmentCreated     = "enrollment.created"
	TypeEnrollmentDeleted     = "enrollment.deleted"
	TypePlanVisibilityChanged = "plan.visibility_changed"
)

// Event is a fact about committed plan state. Handlers decode Payload into
// the payload struct matching Type.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// EnrollmentPayload describes an enrollment that was created or removed.
// ActorID is the learner for enroll and self-unenroll, or the owner when the
// owner removed the learner.
type EnrollmentPayload struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	PlanID       uuid.UUID `json:"plan_id"`
	PlanTitle    string    `json:"plan_title"`
	OwnerID      uuid.UUID `json:"owner_id"`
	LearnerID    uuid.UUID `json:"learner_id"`
	ActorID      uuid.UUID `json:"actor_id"`
}

// VisibilityChangedPayload describes a plan visibility transition together
// with the learners enrolled at the time of the change.
type VisibilityChangedPayload struct {
	PlanID     uuid.UUID         `json:"plan_id"`
	PlanTitle  string            `json:"plan_title"`
	OwnerID    uuid.UUID         `json:"owner_id"`
	From       domain.Visibility `json:"from"`
	To         domain.Visibility `json:"to"`
	LearnerIDs []uuid.UUID       `json:"learner_ids"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }
