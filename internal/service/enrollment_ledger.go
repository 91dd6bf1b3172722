package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/domain/access"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// EnrollmentLedger records who is enrolled in which plan and which topics
// each learner has completed. Like TopicCatalog it works on stores bound to
// the caller's unit of work, with the plan already locked.
type EnrollmentLedger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewEnrollmentLedger creates an EnrollmentLedger.
func NewEnrollmentLedger(logger *slog.Logger) *EnrollmentLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentLedger{
		logger: logger.With(slog.String("component", "enrollment_ledger")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnrollmentFor returns the actor's enrollment in the plan, or nil.
func (l *EnrollmentLedger) EnrollmentFor(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
) (*domain.Enrollment, error) {
	if actor == uuid.Nil {
		return nil, nil
	}
	e, err := s.Enrollments.GetByPlanAndLearner(ctx, plan.ID, actor)
	if errors.Is(err, store.ErrEnrollmentNotFound) {
		return nil, nil
	}
	return e, err
}

// Enroll creates an enrollment with an empty completion set.
func (l *EnrollmentLedger) Enroll(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
) (*domain.Enrollment, error) {
	existing, err := l.EnrollmentFor(ctx, s, actor, plan)
	if err != nil {
		return nil, err
	}

	decision := access.DecideEnroll(actor, plan, existing != nil)
	switch decision {
	case access.EnrollAllowed:
	case access.EnrollDeniedUnauthenticated:
		return nil, ErrUnauthenticated
	case access.EnrollDeniedOwner:
		return nil, ErrOwnerCannotEnroll
	case access.EnrollDeniedPrivate:
		return nil, ErrPlanNotFound
	case access.EnrollDeniedAlreadyEnrolled:
		return nil, ErrAlreadyEnrolled
	}

	e, err := domain.NewEnrollment(plan.ID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.Enrollments.Create(ctx, e); err != nil {
		return nil, translateStoreError(err)
	}

	logger.FromContextOrDefault(ctx, l.logger).Debug("learner enrolled",
		slog.String("plan_id", plan.ID.String()),
		slog.String("enrollment_id", e.ID.String()))
	return e, nil
}

// Unenroll deletes the enrollment and its progress. The learner may leave
// and the plan owner may remove learners.
func (l *EnrollmentLedger) Unenroll(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
	e *domain.Enrollment,
) error {
	if !access.CanRemoveEnrollment(actor, plan, e) {
		return ErrNotEnrollmentParty
	}
	if err := s.Enrollments.Delete(ctx, e.ID); err != nil {
		return translateStoreError(err)
	}

	logger.FromContextOrDefault(ctx, l.logger).Debug("enrollment removed",
		slog.String("plan_id", plan.ID.String()),
		slog.String("enrollment_id", e.ID.String()),
		slog.Bool("by_owner", actor == plan.OwnerID))
	return nil
}

// MarkTopicComplete adds or removes a topic from the learner's completion
// set. Repeating a mark is a no-op, and topics that are not in the
// enrollment's plan are ignored. e is updated in place.
func (l *EnrollmentLedger) MarkTopicComplete(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	e *domain.Enrollment,
	topicID uuid.UUID,
	completed bool,
) error {
	if !access.CanTrackProgress(actor, e) {
		return ErrNotLearner
	}

	topic, err := s.Topics.GetByID(ctx, topicID)
	if errors.Is(err, store.ErrTopicNotFound) || (err == nil && topic.PlanID != e.PlanID) {
		logger.FromContextOrDefault(ctx, l.logger).Debug("ignoring mark for topic outside plan",
			slog.String("enrollment_id", e.ID.String()),
			slog.String("topic_id", topicID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	now := l.now()
	if !e.MarkTopic(topicID, completed, now) {
		return nil
	}
	return translateStoreError(s.Enrollments.SetTopicCompletion(ctx, e.ID, topicID, completed, now))
}

// ListParticipants returns every learner in the plan with their progress.
func (l *EnrollmentLedger) ListParticipants(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
	topics []*domain.Topic,
) ([]ParticipantView, error) {
	if !access.CanView(actor, plan) {
		return nil, ErrPlanNotFound
	}

	participants, err := s.Enrollments.ListParticipants(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	out := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		out = append(out, newParticipantView(p, topics))
	}
	return out, nil
}

// GetEnrollment returns an enrollment readable by its learner or the plan
// owner.
func (l *EnrollmentLedger) GetEnrollment(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	enrollmentID uuid.UUID,
) (*domain.Enrollment, *domain.Plan, error) {
	e, err := s.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, translateStoreError(err)
	}
	plan, err := s.Plans.GetByID(ctx, e.PlanID)
	if err != nil {
		return nil, nil, translateStoreError(err)
	}
	if !access.CanViewEnrollment(actor, plan, e) {
		return nil, nil, ErrNotEnrollmentParty
	}
	return e, plan, nil
}
