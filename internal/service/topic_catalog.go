package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/domain/access"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// TopicCatalog edits the ordered topic list of a plan. Every method runs
// against stores bound to the caller's unit of work, with the plan already
// locked.
type TopicCatalog struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewTopicCatalog creates a TopicCatalog.
func NewTopicCatalog(logger *slog.Logger) *TopicCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicCatalog{
		logger: logger.With(slog.String("component", "topic_catalog")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// authorizeModify returns nil for the owner, hidden for actors who cannot
// see the plan at all, and ErrNotOwned otherwise.
func authorizeModify(actor uuid.UUID, plan *domain.Plan, hidden error) error {
	if access.CanModify(actor, plan) {
		return nil
	}
	if !access.CanView(actor, plan) {
		return hidden
	}
	return ErrNotOwned
}

// AddTopic appends a topic to the plan. Its order index is the plan's
// current topic count, or one past the highest index after deletions.
func (c *TopicCatalog) AddTopic(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
	fields domain.TopicFields,
) (*domain.Topic, error) {
	if err := authorizeModify(actor, plan, ErrPlanNotFound); err != nil {
		return nil, err
	}

	index, err := s.Topics.NextOrderIndex(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	topic, err := domain.NewTopic(plan.ID, index, fields)
	if err != nil {
		return nil, err
	}
	if err := s.Topics.Create(ctx, topic); err != nil {
		return nil, translateStoreError(err)
	}

	logger.FromContextOrDefault(ctx, c.logger).Debug("topic added",
		slog.String("plan_id", plan.ID.String()),
		slog.String("topic_id", topic.ID.String()),
		slog.Int("order_index", topic.OrderIndex))
	return topic, nil
}

// UpdateTopic applies a partial update to a topic of the plan.
func (c *TopicCatalog) UpdateTopic(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
	topic *domain.Topic,
	patch domain.TopicPatch,
) error {
	if err := authorizeModify(actor, plan, ErrTopicNotFound); err != nil {
		return err
	}
	if err := topic.Apply(patch, c.now()); err != nil {
		return err
	}
	return translateStoreError(s.Topics.Update(ctx, topic))
}

// SetStatus moves a topic to any checklist status.
func (c *TopicCatalog) SetStatus(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
	topic *domain.Topic,
	status domain.TopicStatus,
) error {
	if err := authorizeModify(actor, plan, ErrTopicNotFound); err != nil {
		return err
	}
	if err := topic.SetStatus(status, c.now()); err != nil {
		return err
	}
	return translateStoreError(s.Topics.Update(ctx, topic))
}

// DeleteTopic removes a topic and prunes it from every learner's completion
// set. Other topics keep their order indexes.
func (c *TopicCatalog) DeleteTopic(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
	topic *domain.Topic,
) error {
	if err := authorizeModify(actor, plan, ErrTopicNotFound); err != nil {
		return err
	}
	if err := s.Topics.Delete(ctx, topic.ID); err != nil {
		return translateStoreError(err)
	}
	if err := s.Enrollments.PruneTopic(ctx, topic.ID); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, c.logger).Debug("topic deleted",
		slog.String("plan_id", plan.ID.String()),
		slog.String("topic_id", topic.ID.String()))
	return nil
}

// ListTopics returns the plan's topics in order.
func (c *TopicCatalog) ListTopics(
	ctx context.Context,
	s store.Stores,
	actor uuid.UUID,
	plan *domain.Plan,
) ([]*domain.Topic, error) {
	if !access.CanView(actor, plan) {
		return nil, ErrPlanNotFound
	}
	return s.Topics.ListByPlan(ctx, plan.ID)
}

// GetTopic returns topic if actor may view its plan. A hidden plan hides
// its topics too.
func (c *TopicCatalog) GetTopic(actor uuid.UUID, plan *domain.Plan, topic *domain.Topic) (*domain.Topic, error) {
	if !access.CanView(actor, plan) {
		return nil, ErrTopicNotFound
	}
	return topic, nil
}
