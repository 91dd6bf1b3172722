package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// Participant pairs an enrollment with the learner's display name.
type Participant struct {
	Enrollment *domain.Enrollment
	Username   string
}

// EnrollmentStore defines the interface for enrollment data persistence.
// Enrollments are always returned with their completion sets loaded.
type EnrollmentStore interface {
	// Create saves a new enrollment with an empty completion set.
	// Returns ErrEnrollmentExists if the learner is already enrolled in the plan.
	Create(ctx context.Context, enrollment *domain.Enrollment) error

	// GetByID retrieves an enrollment by its unique ID.
	// Returns ErrEnrollmentNotFound if the enrollment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error)

	// GetByPlanAndLearner retrieves the learner's enrollment in the plan.
	// Returns ErrEnrollmentNotFound if the learner is not enrolled.
	GetByPlanAndLearner(ctx context.Context, planID, learnerID uuid.UUID) (*domain.Enrollment, error)

	// ListByPlan returns every enrollment in the plan, oldest first.
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Enrollment, error)

	// ListParticipants returns every enrollment in the plan with the
	// learner's username, oldest first.
	ListParticipants(ctx context.Context, planID uuid.UUID) ([]Participant, error)

	// ListByLearner returns the learner's enrollments, newest first.
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.Enrollment, error)

	// SetTopicCompletion adds or removes topicID from the enrollment's
	// completion set and records at as the last activity time.
	// Returns ErrEnrollmentNotFound if the enrollment does not exist.
	SetTopicCompletion(ctx context.Context, enrollmentID, topicID uuid.UUID, completed bool, at time.Time) error

	// Delete removes an enrollment and its completion set.
	// Returns ErrEnrollmentNotFound if the enrollment does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// PruneTopic removes topicID from every enrollment's completion set.
	PruneTopic(ctx context.Context, topicID uuid.UUID) error
}
