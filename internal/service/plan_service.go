package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/domain/access"
	"github.com/phrazzld/learnplan-api/internal/domain/progress"
	"github.com/phrazzld/learnplan-api/internal/events"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// CreatePlanInput describes a new plan and its optional initial topics,
// which receive order indexes 0..n-1 in the given order.
type CreatePlanInput struct {
	Fields domain.PlanFields
	Topics []domain.TopicFields
}

// DiscoverRequest selects one page of a discovery listing. A zero Size
// selects the configured default.
type DiscoverRequest struct {
	Mode  store.DiscoverMode
	Query string
	Page  int
	Size  int
}

// PlanService is the entry point for every plan, topic and enrollment
// operation. Mutations run in a single unit of work that locks the plan
// first; events are emitted only after the unit of work commits.
type PlanService interface {
	CreatePlan(ctx context.Context, actor uuid.UUID, in CreatePlanInput) (*PlanView, error)
	GetPlan(ctx context.Context, actor, planID uuid.UUID) (*PlanView, error)
	UpdatePlan(ctx context.Context, actor, planID uuid.UUID, patch domain.PlanPatch) (*PlanView, error)
	SetVisibility(ctx context.Context, actor, planID uuid.UUID, v domain.Visibility) (*PlanView, error)
	DeletePlan(ctx context.Context, actor, planID uuid.UUID) error
	ListOwnPlans(ctx context.Context, actor uuid.UUID) ([]*domain.Plan, error)
	Discover(ctx context.Context, req DiscoverRequest) (*DiscoverPage, error)
	PlanProgress(ctx context.Context, actor, planID uuid.UUID) (*PlanProgressView, error)

	ListTopics(ctx context.Context, actor, planID uuid.UUID) ([]*domain.Topic, error)
	GetTopic(ctx context.Context, actor, topicID uuid.UUID) (*domain.Topic, error)
	AddTopic(ctx context.Context, actor, planID uuid.UUID, fields domain.TopicFields) (*domain.Topic, error)
	UpdateTopic(ctx context.Context, actor, topicID uuid.UUID, patch domain.TopicPatch) (*domain.Topic, error)
	SetTopicStatus(ctx context.Context, actor, topicID uuid.UUID, status domain.TopicStatus) (*domain.Topic, error)
	DeleteTopic(ctx context.Context, actor, topicID uuid.UUID) error

	Enroll(ctx context.Context, actor, planID uuid.UUID) (*EnrollmentView, error)
	Unenroll(ctx context.Context, actor, enrollmentID uuid.UUID) error
	MarkTopicComplete(ctx context.Context, actor, enrollmentID, topicID uuid.UUID, completed bool) (*EnrollmentView, error)
	GetEnrollment(ctx context.Context, actor, enrollmentID uuid.UUID) (*EnrollmentView, error)
	ListMyEnrollments(ctx context.Context, actor uuid.UUID) ([]*EnrollmentView, error)
	ListParticipants(ctx context.Context, actor, planID uuid.UUID) ([]ParticipantView, error)
}

// PlanServiceConfig bounds discovery page sizes.
type PlanServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPlanServiceConfig returns the default discovery bounds.
func DefaultPlanServiceConfig() PlanServiceConfig {
	return PlanServiceConfig{DefaultPageSize: 10, MaxPageSize: 100}
}

type planServiceImpl struct {
	tx      store.TxManager
	topics  *TopicCatalog
	ledger  *EnrollmentLedger
	emitter events.EventEmitter
	config  PlanServiceConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewPlanService creates a PlanService. A nil emitter discards events.
func NewPlanService(
	tx store.TxManager,
	emitter events.EventEmitter,
	config PlanServiceConfig,
	logger *slog.Logger,
) (PlanService, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	defaults := DefaultPlanServiceConfig()
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = defaults.MaxPageSize
	}
	if config.DefaultPageSize <= 0 || config.DefaultPageSize > config.MaxPageSize {
		config.DefaultPageSize = min(defaults.DefaultPageSize, config.MaxPageSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &planServiceImpl{
		tx:      tx,
		topics:  NewTopicCatalog(logger),
		ledger:  NewEnrollmentLedger(logger),
		emitter: emitter,
		config:  config,
		logger:  logger.With(slog.String("component", "plan_service")),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// fail wraps err for the caller. Expected domain failures are logged at
// debug level, everything else as an error.
func (s *planServiceImpl) fail(ctx context.Context, op, msg string, err error) error {
	err = translateStoreError(err)
	log := logger.FromContextOrDefault(ctx, s.logger)
	if isDomainError(err) {
		log.Debug(msg, slog.String("operation", op), slog.String("reason", err.Error()))
	} else {
		log.Error(msg, slog.String("operation", op), slog.String("error", err.Error()))
	}
	return NewPlanServiceError(op, msg, err)
}

// emit publishes events produced by a committed unit of work. Delivery
// failures are logged and never reach the caller.
func (s *planServiceImpl) emit(ctx context.Context, pending []*events.Event) {
	for _, e := range pending {
		if err := s.emitter.EmitEvent(ctx, e); err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit event",
				slog.String("event_type", e.Type),
				slog.String("event_id", e.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}

// lockPlan loads and locks the plan for the rest of the unit of work.
func lockPlan(ctx context.Context, st store.Stores, planID uuid.UUID) (*domain.Plan, error) {
	plan, err := st.Plans.GetForUpdate(ctx, planID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return plan, nil
}

// lockTopic resolves a topic, locks its plan and reloads the topic so a
// concurrent delete is observed.
func lockTopic(ctx context.Context, st store.Stores, topicID uuid.UUID) (*domain.Topic, *domain.Plan, error) {
	topic, err := st.Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, nil, translateStoreError(err)
	}
	plan, err := lockPlan(ctx, st, topic.PlanID)
	if err != nil {
		return nil, nil, err
	}
	topic, err = st.Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, nil, translateStoreError(err)
	}
	return topic, plan, nil
}

// lockEnrollment is lockTopic for enrollments.
func lockEnrollment(
	ctx context.Context,
	st store.Stores,
	enrollmentID uuid.UUID,
) (*domain.Enrollment, *domain.Plan, error) {
	e, err := st.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, translateStoreError(err)
	}
	plan, err := lockPlan(ctx, st, e.PlanID)
	if err != nil {
		return nil, nil, err
	}
	e, err = st.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, nil, translateStoreError(err)
	}
	return e, plan, nil
}

// planView assembles what actor may see of plan.
func (s *planServiceImpl) planView(
	ctx context.Context,
	st store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
) (*PlanView, error) {
	topics, err := st.Topics.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	view := &PlanView{
		Plan:     plan,
		Topics:   topics,
		Progress: progress.OwnerProgress(topics),
		IsOwner:  access.CanModify(actor, plan),
	}

	enrollment, err := s.ledger.EnrollmentFor(ctx, st, actor, plan)
	if err != nil {
		return nil, err
	}
	if enrollment != nil {
		view.Enrollment = newEnrollmentView(enrollment, plan, topics)
	}

	view.Participants, err = s.ledger.ListParticipants(ctx, st, actor, plan, topics)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CreatePlan implements PlanService.CreatePlan.
func (s *planServiceImpl) CreatePlan(ctx context.Context, actor uuid.UUID, in CreatePlanInput) (*PlanView, error) {
	const op = "create plan"
	if actor == uuid.Nil {
		return nil, s.fail(ctx, op, "no actor", ErrUnauthenticated)
	}

	plan, err := domain.NewPlan(actor, in.Fields)
	if err != nil {
		return nil, s.fail(ctx, op, "invalid plan", err)
	}

	var view *PlanView
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := st.Plans.Create(ctx, plan); err != nil {
			return err
		}
		for i, fields := range in.Topics {
			topic, err := domain.NewTopic(plan.ID, i, fields)
			if err != nil {
				return err
			}
			if err := st.Topics.Create(ctx, topic); err != nil {
				return err
			}
		}
		created, err := st.Plans.GetByID(ctx, plan.ID)
		if err != nil {
			return err
		}
		view, err = s.planView(ctx, st, actor, created)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to create plan", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("plan created",
		slog.String("plan_id", plan.ID.String()),
		slog.Int("topic_count", len(in.Topics)))
	return view, nil
}

// GetPlan implements PlanService.GetPlan. Views by anyone but the owner
// count toward the plan's view counter.
func (s *planServiceImpl) GetPlan(ctx context.Context, actor, planID uuid.UUID) (*PlanView, error) {
	const op = "get plan"

	var view *PlanView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := st.Plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if !access.CanView(actor, plan) {
			return ErrPlanNotFound
		}
		if !access.CanModify(actor, plan) {
			if err := st.Plans.IncrementViewCount(ctx, plan.ID); err != nil {
				return err
			}
			plan.ViewCount++
		}
		view, err = s.planView(ctx, st, actor, plan)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to get plan", err)
	}
	return view, nil
}

// UpdatePlan implements PlanService.UpdatePlan.
func (s *planServiceImpl) UpdatePlan(
	ctx context.Context,
	actor, planID uuid.UUID,
	patch domain.PlanPatch,
) (*PlanView, error) {
	const op = "update plan"

	var view *PlanView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := lockPlan(ctx, st, planID)
		if err != nil {
			return err
		}
		if err := authorizeModify(actor, plan, ErrPlanNotFound); err != nil {
			return err
		}
		if err := plan.Apply(patch, s.now()); err != nil {
			return err
		}
		if err := st.Plans.Update(ctx, plan); err != nil {
			return err
		}
		view, err = s.planView(ctx, st, actor, plan)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to update plan", err)
	}
	return view, nil
}

// SetVisibility implements PlanService.SetVisibility. Enrolled learners are
// notified of every actual change; their enrollments are kept.
func (s *planServiceImpl) SetVisibility(
	ctx context.Context,
	actor, planID uuid.UUID,
	v domain.Visibility,
) (*PlanView, error) {
	const op = "set visibility"

	var (
		view    *PlanView
		pending []*events.Event
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		pending = nil
		plan, err := lockPlan(ctx, st, planID)
		if err != nil {
			return err
		}
		if err := authorizeModify(actor, plan, ErrPlanNotFound); err != nil {
			return err
		}

		from := plan.Visibility
		if err := plan.SetVisibility(v, s.now()); err != nil {
			return err
		}
		if from != v {
			if err := st.Plans.Update(ctx, plan); err != nil {
				return err
			}
			enrollments, err := st.Enrollments.ListByPlan(ctx, plan.ID)
			if err != nil {
				return err
			}
			learners := make([]uuid.UUID, 0, len(enrollments))
			for _, e := range enrollments {
				learners = append(learners, e.LearnerID)
			}
			event, err := events.NewEvent(events.TypePlanVisibilityChanged, events.VisibilityChangedPayload{
				PlanID:     plan.ID,
				PlanTitle:  plan.Title,
				OwnerID:    plan.OwnerID,
				From:       from,
				To:         v,
				LearnerIDs: learners,
			})
			if err != nil {
				return err
			}
			pending = append(pending, event)
		}

		view, err = s.planView(ctx, st, actor, plan)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to change visibility", err)
	}

	s.emit(ctx, pending)
	return view, nil
}

// DeletePlan implements PlanService.DeletePlan. Topics, enrollments and
// completion records go with the plan.
func (s *planServiceImpl) DeletePlan(ctx context.Context, actor, planID uuid.UUID) error {
	const op = "delete plan"

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := lockPlan(ctx, st, planID)
		if err != nil {
			return err
		}
		if err := authorizeModify(actor, plan, ErrPlanNotFound); err != nil {
			return err
		}
		return st.Plans.Delete(ctx, plan.ID)
	})
	if err != nil {
		return s.fail(ctx, op, "failed to delete plan", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("plan deleted",
		slog.String("plan_id", planID.String()))
	return nil
}

// ListOwnPlans implements PlanService.ListOwnPlans.
func (s *planServiceImpl) ListOwnPlans(ctx context.Context, actor uuid.UUID) ([]*domain.Plan, error) {
	if actor == uuid.Nil {
		return nil, s.fail(ctx, "list own plans", "no actor", ErrUnauthenticated)
	}
	plans, err := s.tx.Stores().Plans.ListByOwner(ctx, actor)
	if err != nil {
		return nil, s.fail(ctx, "list own plans", "failed to list plans", err)
	}
	return plans, nil
}

// Discover implements PlanService.Discover. Only PUBLIC plans are listed.
func (s *planServiceImpl) Discover(ctx context.Context, req DiscoverRequest) (*DiscoverPage, error) {
	const op = "discover"

	q := store.DiscoverQuery{
		Mode:  req.Mode,
		Query: strings.TrimSpace(req.Query),
		Page:  req.Page,
		Size:  req.Size,
	}
	if q.Size == 0 {
		q.Size = s.config.DefaultPageSize
	}

	switch {
	case q.Mode != store.DiscoverPopular && q.Mode != store.DiscoverRecent && q.Mode != store.DiscoverSearch:
		return nil, s.fail(ctx, op, "invalid request", ErrInvalidDiscovery)
	case q.Page < 0:
		return nil, s.fail(ctx, op, "invalid request", ErrInvalidPage)
	case q.Size < 1 || q.Size > s.config.MaxPageSize:
		return nil, s.fail(ctx, op, "invalid request", ErrInvalidPageSize)
	case q.Page > (math.MaxInt-1)/q.Size:
		return nil, s.fail(ctx, op, "invalid request", ErrInvalidPage)
	case q.Mode == store.DiscoverSearch && q.Query == "":
		return nil, s.fail(ctx, op, "invalid request", ErrEmptySearchQuery)
	}
	if q.Mode != store.DiscoverSearch {
		q.Query = ""
	}

	plans, err := s.tx.Stores().Plans.Discover(ctx, q)
	if err != nil {
		return nil, s.fail(ctx, op, "failed to list plans", err)
	}
	return &DiscoverPage{Mode: q.Mode, Query: q.Query, Page: q.Page, Size: q.Size, Plans: plans}, nil
}

// PlanProgress implements PlanService.PlanProgress. Only the owner sees
// the aggregate over learners.
func (s *planServiceImpl) PlanProgress(ctx context.Context, actor, planID uuid.UUID) (*PlanProgressView, error) {
	const op = "plan progress"

	var view *PlanProgressView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := st.Plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if err := authorizeModify(actor, plan, ErrPlanNotFound); err != nil {
			return err
		}
		topics, err := st.Topics.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		enrollments, err := st.Enrollments.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		view = &PlanProgressView{
			PlanID:    plan.ID,
			Owner:     progress.OwnerProgress(topics),
			Aggregate: progress.PlanAggregate(topics, enrollments),
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to compute progress", err)
	}
	return view, nil
}
