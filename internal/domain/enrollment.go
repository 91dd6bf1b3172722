package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus is derived from a learner's progress; it is never stored.
type EnrollmentStatus string

// Possible enrollment status values
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment validation errors
var (
	ErrEmptyEnrollmentID      = fmt.Errorf("%w: enrollment ID cannot be empty", ErrValidation)
	ErrEmptyEnrollmentPlan    = fmt.Errorf("%w: enrollment plan ID cannot be empty", ErrValidation)
	ErrEmptyEnrollmentLearner = fmt.Errorf("%w: enrollment learner ID cannot be empty", ErrValidation)
)

// Enrollment is a learner's membership in another user's plan together with
// the set of topics the learner has personally completed.
type Enrollment struct {
	ID                uuid.UUID   `json:"id"`
	PlanID            uuid.UUID   `json:"plan_id"`
	LearnerID         uuid.UUID   `json:"learner_id"`
	CompletedTopicIDs []uuid.UUID `json:"completed_topic_ids"`
	CreatedAt         time.Time   `json:"created_at"`
	LastActivityAt    time.Time   `json:"last_activity_at"`
}

// NewEnrollment creates an enrollment with an empty completion set.
func NewEnrollment(planID, learnerID uuid.UUID) (*Enrollment, error) {
	now := time.Now().UTC()
	e := &Enrollment{
		ID:                uuid.New(),
		PlanID:            planID,
		LearnerID:         learnerID,
		CompletedTopicIDs: []uuid.UUID{},
		CreatedAt:         now,
		LastActivityAt:    now,
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// Validate checks if the Enrollment has valid data.
func (e *Enrollment) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEnrollmentID
	}
	if e.PlanID == uuid.Nil {
		return ErrEmptyEnrollmentPlan
	}
	if e.LearnerID == uuid.Nil {
		return ErrEmptyEnrollmentLearner
	}
	return nil
}

// HasCompleted reports whether topicID is in the completion set.
func (e *Enrollment) HasCompleted(topicID uuid.UUID) bool {
	for _, id := range e.CompletedTopicIDs {
		if id == topicID {
			return true
		}
	}
	return false
}

// MarkTopic adds or removes topicID from the completion set and reports
// whether the set changed. Repeating a call is a no-op.
func (e *Enrollment) MarkTopic(topicID uuid.UUID, completed bool, now time.Time) bool {
	has := e.HasCompleted(topicID)
	switch {
	case completed && !has:
		e.CompletedTopicIDs = append(e.CompletedTopicIDs, topicID)
	case !completed && has:
		e.dropTopic(topicID)
	default:
		return false
	}
	e.LastActivityAt = now
	return true
}

// PruneTopic removes a deleted topic from the completion set without
// counting as learner activity.
func (e *Enrollment) PruneTopic(topicID uuid.UUID) {
	e.dropTopic(topicID)
}

func (e *Enrollment) dropTopic(topicID uuid.UUID) {
	kept := e.CompletedTopicIDs[:0]
	for _, id := range e.CompletedTopicIDs {
		if id != topicID {
			kept = append(kept, id)
		}
	}
	e.CompletedTopicIDs = kept
}

// Clone returns a deep copy.
func (e *Enrollment) Clone() *Enrollment {
	c := *e
	c.CompletedTopicIDs = append([]uuid.UUID(nil), e.CompletedTopicIDs...)
	return &c
}
