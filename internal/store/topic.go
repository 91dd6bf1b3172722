package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// TopicStore defines the interface for topic data persistence.
type TopicStore interface {
	// Create saves a new topic.
	// Returns ErrOrderIndexTaken if the plan already has a topic at the
	// same order index, and ErrInvalidEntity if the plan does not exist.
	Create(ctx context.Context, topic *domain.Topic) error

	// GetByID retrieves a topic by its unique ID.
	// Returns ErrTopicNotFound if the topic does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error)

	// Update persists title, material link, notes, status and updated_at.
	// The order index never changes after creation.
	// Returns ErrTopicNotFound if the topic does not exist.
	Update(ctx context.Context, topic *domain.Topic) error

	// Delete removes a topic. Remaining topics keep their order indexes.
	// Returns ErrTopicNotFound if the topic does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByPlan returns the plan's topics ordered by order index ascending.
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Topic, error)

	// NextOrderIndex returns the index a new topic in the plan receives:
	// the current topic count, or one past the highest index when deletions
	// have left that count occupied.
	NextOrderIndex(ctx context.Context, planID uuid.UUID) (int, error)
}
