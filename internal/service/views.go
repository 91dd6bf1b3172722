package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/domain/progress"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// PlanView is a plan as seen by one actor.
type PlanView struct {
	Plan   *domain.Plan
	Topics []*domain.Topic

	// Progress is the owner's checklist projection.
	Progress progress.Snapshot

	IsOwner bool

	// Enrollment is the actor's own enrollment, nil when not enrolled.
	Enrollment *EnrollmentView

	Participants []ParticipantView
}

// IsEnrolled reports whether the viewing actor holds an enrollment.
func (v *PlanView) IsEnrolled() bool {
	return v.Enrollment != nil
}

// EnrollmentView is an enrollment with its derived progress.
type EnrollmentView struct {
	Enrollment *domain.Enrollment
	PlanTitle  string
	Status     domain.EnrollmentStatus
	Progress   progress.Snapshot
}

// ParticipantView describes one learner enrolled in a plan.
type ParticipantView struct {
	EnrollmentID   uuid.UUID
	LearnerID      uuid.UUID
	Username       string
	EnrolledAt     time.Time
	LastActivityAt time.Time
	Status         domain.EnrollmentStatus
	Progress       progress.Snapshot
}

// PlanProgressView is the owner's progress overview of a plan.
type PlanProgressView struct {
	PlanID    uuid.UUID
	Owner     progress.Snapshot
	Aggregate progress.Aggregate
}

// DiscoverPage is one page of a discovery listing.
type DiscoverPage struct {
	Mode  store.DiscoverMode
	Query string
	Page  int
	Size  int
	Plans []*domain.Plan
}

func enrollmentStatus(s progress.Snapshot) domain.EnrollmentStatus {
	if s.Finished() {
		return domain.EnrollmentStatusCompleted
	}
	return domain.EnrollmentStatusActive
}

func newEnrollmentView(e *domain.Enrollment, plan *domain.Plan, topics []*domain.Topic) *EnrollmentView {
	snap := progress.EnrollmentProgress(e.CompletedTopicIDs, topics)
	return &EnrollmentView{
		Enrollment: e,
		PlanTitle:  plan.Title,
		Status:     enrollmentStatus(snap),
		Progress:   snap,
	}
}

func newParticipantView(p store.Participant, topics []*domain.Topic) ParticipantView {
	snap := progress.EnrollmentProgress(p.Enrollment.CompletedTopicIDs, topics)
	return ParticipantView{
		EnrollmentID:   p.Enrollment.ID,
		LearnerID:      p.Enrollment.LearnerID,
		Username:       p.Username,
		EnrolledAt:     p.Enrollment.CreatedAt,
		LastActivityAt: p.Enrollment.LastActivityAt,
		Status:         enrollmentStatus(snap),
		Progress:       snap,
	}
}
