// Package access decides what an actor may do with a learning plan.
//
// The functions here are pure predicates over the actor, the plan and the
// actor's existing enrollment. They never fail; callers translate a negative
// answer into the appropriate error.
package access

import (
	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// EnrollDecision explains the outcome of an enrollment check.
type EnrollDecision int

// Possible enrollment decisions. Only EnrollAllowed permits the enrollment.
const (
	EnrollAllowed EnrollDecision = iota
	EnrollDeniedUnauthenticated
	EnrollDeniedOwner
	EnrollDeniedPrivate
	EnrollDeniedAlreadyEnrolled
)

// String returns a short, loggable reason.
func (d EnrollDecision) String() string {
	switch d {
	case EnrollAllowed:
		return "allowed"
	case EnrollDeniedUnauthenticated:
		return "unauthenticated"
	case EnrollDeniedOwner:
		return "owner"
	case EnrollDeniedPrivate:
		return "private"
	case EnrollDeniedAlreadyEnrolled:
		return "already_enrolled"
	}
	return "unknown"
}

// CanModify reports whether actor owns the plan.
func CanModify(actor uuid.UUID, plan *domain.Plan) bool {
	return actor != uuid.Nil && actor == plan.OwnerID
}

// CanView reports whether actor may read the plan. Owners always can; any
// authenticated actor can read SHARED and PUBLIC plans.
func CanView(actor uuid.UUID, plan *domain.Plan) bool {
	if CanModify(actor, plan) {
		return true
	}
	if actor == uuid.Nil {
		return false
	}
	return plan.Visibility == domain.VisibilityShared || plan.Visibility == domain.VisibilityPublic
}

// Discoverable reports whether the plan may appear in discovery listings.
// SHARED plans are reachable by ID only.
func Discoverable(plan *domain.Plan) bool {
	return plan.Visibility == domain.VisibilityPublic
}

// DecideEnroll evaluates the enrollment rules in order and returns the first
// one that fails.
func DecideEnroll(actor uuid.UUID, plan *domain.Plan, alreadyEnrolled bool) EnrollDecision {
	switch {
	case actor == uuid.Nil:
		return EnrollDeniedUnauthenticated
	case actor == plan.OwnerID:
		return EnrollDeniedOwner
	case plan.Visibility == domain.VisibilityPrivate:
		return EnrollDeniedPrivate
	case alreadyEnrolled:
		return EnrollDeniedAlreadyEnrolled
	}
	return EnrollAllowed
}

// CanEnroll reports whether actor may enroll in the plan.
func CanEnroll(actor uuid.UUID, plan *domain.Plan, alreadyEnrolled bool) bool {
	return DecideEnroll(actor, plan, alreadyEnrolled) == EnrollAllowed
}

// CanRemoveEnrollment reports whether actor may delete the enrollment: the
// learner may leave, and the plan owner may remove learners.
func CanRemoveEnrollment(actor uuid.UUID, plan *domain.Plan, e *domain.Enrollment) bool {
	return actor != uuid.Nil && (actor == e.LearnerID || actor == plan.OwnerID)
}

// CanViewEnrollment reports whether actor may read the enrollment's progress.
func CanViewEnrollment(actor uuid.UUID, plan *domain.Plan, e *domain.Enrollment) bool {
	return CanRemoveEnrollment(actor, plan, e)
}

// CanTrackProgress reports whether actor may mark topics on the enrollment.
// Only the learner records their own progress.
func CanTrackProgress(actor uuid.UUID, e *domain.Enrollment) bool {
	return actor != uuid.Nil && actor == e.LearnerID
}
