package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// Service sentinel errors. Each wraps one of the domain error kinds so the
// API layer can classify it with errors.Is without knowing the specifics.
var (
	// ErrPlanNotFound is returned for plans that do not exist and for PRIVATE
	// plans seen by anyone but their owner.
	ErrPlanNotFound = fmt.Errorf("%w: plan", domain.ErrNotFound)

	// ErrTopicNotFound is returned for unknown topics and for topics of plans
	// the actor cannot see.
	ErrTopicNotFound = fmt.Errorf("%w: topic", domain.ErrNotFound)

	// ErrEnrollmentNotFound is returned for unknown enrollments.
	ErrEnrollmentNotFound = fmt.Errorf("%w: enrollment", domain.ErrNotFound)

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", domain.ErrNotFound)

	// ErrUnauthenticated is returned when an operation needs an actor and
	// none was supplied.
	ErrUnauthenticated = fmt.Errorf("%w: authentication required", domain.ErrUnauthorized)

	// ErrNotOwned indicates the plan is owned by a different user than the
	// one making the request.
	ErrNotOwned = fmt.Errorf("%w: plan is owned by another user", domain.ErrUnauthorized)

	// ErrOwnerCannotEnroll is returned when an owner tries to enroll in
	// their own plan.
	ErrOwnerCannotEnroll = fmt.Errorf("%w: owners cannot enroll in their own plan", domain.ErrUnauthorized)

	// ErrNotLearner is returned when someone other than the learner tries to
	// record progress on an enrollment.
	ErrNotLearner = fmt.Errorf("%w: only the learner can track progress", domain.ErrUnauthorized)

	// ErrNotEnrollmentParty is returned when the actor is neither the
	// learner nor the plan owner.
	ErrNotEnrollmentParty = fmt.Errorf("%w: not the learner or plan owner", domain.ErrUnauthorized)

	// ErrAlreadyEnrolled is returned when the learner already holds an
	// enrollment in the plan.
	ErrAlreadyEnrolled = fmt.Errorf("%w: already enrolled", domain.ErrConflict)

	// ErrTopicOrderConflict is returned when two topics race for the same
	// order index.
	ErrTopicOrderConflict = fmt.Errorf("%w: topic order index taken", domain.ErrConflict)

	// ErrEmailExists and ErrUsernameExists report taken identity fields.
	ErrEmailExists    = fmt.Errorf("%w: email already registered", domain.ErrConflict)
	ErrUsernameExists = fmt.Errorf("%w: username already taken", domain.ErrConflict)

	// Discovery input errors
	ErrEmptySearchQuery = fmt.Errorf("%w: search query is required", domain.ErrValidation)
	ErrInvalidPage      = fmt.Errorf("%w: page is out of range", domain.ErrValidation)
	ErrInvalidPageSize  = fmt.Errorf("%w: page size out of range", domain.ErrValidation)
	ErrInvalidDiscovery = fmt.Errorf("%w: unknown discovery mode", domain.ErrValidation)
)

// PlanServiceError wraps a failure with the operation that produced it.
type PlanServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for PlanServiceError.
func (e *PlanServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("plan service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PlanServiceError) Unwrap() error {
	return e.Err
}

// NewPlanServiceError creates a new PlanServiceError.
func NewPlanServiceError(operation, message string, err error) *PlanServiceError {
	return &PlanServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// translateStoreError maps persistence errors onto service sentinels.
// Errors that already carry a domain kind pass through unchanged.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrPlanNotFound):
		return ErrPlanNotFound
	case errors.Is(err, store.ErrTopicNotFound):
		return ErrTopicNotFound
	case errors.Is(err, store.ErrEnrollmentNotFound):
		return ErrEnrollmentNotFound
	case errors.Is(err, store.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrEnrollmentExists):
		return ErrAlreadyEnrolled
	case errors.Is(err, store.ErrOrderIndexTaken):
		return ErrTopicOrderConflict
	case errors.Is(err, store.ErrEmailExists):
		return ErrEmailExists
	case errors.Is(err, store.ErrUsernameExists):
		return ErrUsernameExists
	}
	return err
}

// isDomainError reports whether err is an expected, classified failure.
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}
