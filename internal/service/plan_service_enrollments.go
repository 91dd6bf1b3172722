package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/events"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

func enrollmentEvent(eventType string, e *domain.Enrollment, plan *domain.Plan, actor uuid.UUID) (*events.Event, error) {
	return events.NewEvent(eventType, events.EnrollmentPayload{
		EnrollmentID: e.ID,
		PlanID:       plan.ID,
		PlanTitle:    plan.Title,
		OwnerID:      plan.OwnerID,
		LearnerID:    e.LearnerID,
		ActorID:      actor,
	})
}

// Enroll implements PlanService.Enroll.
func (s *planServiceImpl) Enroll(ctx context.Context, actor, planID uuid.UUID) (*EnrollmentView, error) {
	const op = "enroll"

	var (
		view  *EnrollmentView
		event *events.Event
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := lockPlan(ctx, st, planID)
		if err != nil {
			return err
		}
		e, err := s.ledger.Enroll(ctx, st, actor, plan)
		if err != nil {
			return err
		}
		topics, err := st.Topics.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		view = newEnrollmentView(e, plan, topics)
		event, err = enrollmentEvent(events.TypeEnrollmentCreated, e, plan, actor)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to enroll", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("learner enrolled",
		slog.String("plan_id", planID.String()),
		slog.String("enrollment_id", view.Enrollment.ID.String()))
	s.emit(ctx, []*events.Event{event})
	return view, nil
}

// Unenroll implements PlanService.Unenroll.
func (s *planServiceImpl) Unenroll(ctx context.Context, actor, enrollmentID uuid.UUID) error {
	const op = "unenroll"

	var event *events.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		e, plan, err := lockEnrollment(ctx, st, enrollmentID)
		if err != nil {
			return err
		}
		if err := s.ledger.Unenroll(ctx, st, actor, plan, e); err != nil {
			return err
		}
		event, err = enrollmentEvent(events.TypeEnrollmentDeleted, e, plan, actor)
		return err
	})
	if err != nil {
		return s.fail(ctx, op, "failed to unenroll", err)
	}

	s.emit(ctx, []*events.Event{event})
	return nil
}

// MarkTopicComplete implements PlanService.MarkTopicComplete.
func (s *planServiceImpl) MarkTopicComplete(
	ctx context.Context,
	actor, enrollmentID, topicID uuid.UUID,
	completed bool,
) (*EnrollmentView, error) {
	var view *EnrollmentView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		e, plan, err := lockEnrollment(ctx, st, enrollmentID)
		if err != nil {
			return err
		}
		if err := s.ledger.MarkTopicComplete(ctx, st, actor, e, topicID, completed); err != nil {
			return err
		}
		topics, err := st.Topics.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		view = newEnrollmentView(e, plan, topics)
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "mark topic", "failed to record progress", err)
	}
	return view, nil
}

// GetEnrollment implements PlanService.GetEnrollment.
func (s *planServiceImpl) GetEnrollment(ctx context.Context, actor, enrollmentID uuid.UUID) (*EnrollmentView, error) {
	st := s.tx.Stores()
	e, plan, err := s.ledger.GetEnrollment(ctx, st, actor, enrollmentID)
	if err != nil {
		return nil, s.fail(ctx, "get enrollment", "failed to get enrollment", err)
	}
	topics, err := st.Topics.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, s.fail(ctx, "get enrollment", "failed to list topics", err)
	}
	return newEnrollmentView(e, plan, topics), nil
}

// ListMyEnrollments implements PlanService.ListMyEnrollments. Learners see
// their enrollments whatever the plan's current visibility.
func (s *planServiceImpl) ListMyEnrollments(ctx context.Context, actor uuid.UUID) ([]*EnrollmentView, error) {
	const op = "list enrollments"
	if actor == uuid.Nil {
		return nil, s.fail(ctx, op, "no actor", ErrUnauthenticated)
	}

	var views []*EnrollmentView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		enrollments, err := st.Enrollments.ListByLearner(ctx, actor)
		if err != nil {
			return err
		}
		views = make([]*EnrollmentView, 0, len(enrollments))
		for _, e := range enrollments {
			plan, err := st.Plans.GetByID(ctx, e.PlanID)
			if err != nil {
				return err
			}
			topics, err := st.Topics.ListByPlan(ctx, plan.ID)
			if err != nil {
				return err
			}
			views = append(views, newEnrollmentView(e, plan, topics))
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to list enrollments", err)
	}
	return views, nil
}

// ListParticipants implements PlanService.ListParticipants.
func (s *planServiceImpl) ListParticipants(ctx context.Context, actor, planID uuid.UUID) ([]ParticipantView, error) {
	const op = "list participants"

	var out []ParticipantView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := st.Plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		topics, err := st.Topics.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		out, err = s.ledger.ListParticipants(ctx, st, actor, plan, topics)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to list participants", err)
	}
	return out, nil
}
