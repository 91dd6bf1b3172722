package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// ListTopics implements PlanService.ListTopics.
func (s *planServiceImpl) ListTopics(ctx context.Context, actor, planID uuid.UUID) ([]*domain.Topic, error) {
	st := s.tx.Stores()
	plan, err := st.Plans.GetByID(ctx, planID)
	if err != nil {
		return nil, s.fail(ctx, "list topics", "failed to load plan", err)
	}
	topics, err := s.topics.ListTopics(ctx, st, actor, plan)
	if err != nil {
		return nil, s.fail(ctx, "list topics", "failed to list topics", err)
	}
	return topics, nil
}

// GetTopic implements PlanService.GetTopic.
func (s *planServiceImpl) GetTopic(ctx context.Context, actor, topicID uuid.UUID) (*domain.Topic, error) {
	st := s.tx.Stores()
	topic, err := st.Topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, s.fail(ctx, "get topic", "failed to load topic", err)
	}
	plan, err := st.Plans.GetByID(ctx, topic.PlanID)
	if err != nil {
		return nil, s.fail(ctx, "get topic", "failed to load plan", err)
	}
	topic, err = s.topics.GetTopic(actor, plan, topic)
	if err != nil {
		return nil, s.fail(ctx, "get topic", "topic not visible", err)
	}
	return topic, nil
}

// AddTopic implements PlanService.AddTopic.
func (s *planServiceImpl) AddTopic(
	ctx context.Context,
	actor, planID uuid.UUID,
	fields domain.TopicFields,
) (*domain.Topic, error) {
	var topic *domain.Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		plan, err := lockPlan(ctx, st, planID)
		if err != nil {
			return err
		}
		topic, err = s.topics.AddTopic(ctx, st, actor, plan, fields)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "add topic", "failed to add topic", err)
	}
	return topic, nil
}

// UpdateTopic implements PlanService.UpdateTopic.
func (s *planServiceImpl) UpdateTopic(
	ctx context.Context,
	actor, topicID uuid.UUID,
	patch domain.TopicPatch,
) (*domain.Topic, error) {
	var topic *domain.Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, plan, err := lockTopic(ctx, st, topicID)
		if err != nil {
			return err
		}
		if err := s.topics.UpdateTopic(ctx, st, actor, plan, t, patch); err != nil {
			return err
		}
		topic = t
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "update topic", "failed to update topic", err)
	}
	return topic, nil
}

// SetTopicStatus implements PlanService.SetTopicStatus.
func (s *planServiceImpl) SetTopicStatus(
	ctx context.Context,
	actor, topicID uuid.UUID,
	status domain.TopicStatus,
) (*domain.Topic, error) {
	var topic *domain.Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, plan, err := lockTopic(ctx, st, topicID)
		if err != nil {
			return err
		}
		if err := s.topics.SetStatus(ctx, st, actor, plan, t, status); err != nil {
			return err
		}
		topic = t
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "set topic status", "failed to set topic status", err)
	}
	return topic, nil
}

// DeleteTopic implements PlanService.DeleteTopic.
func (s *planServiceImpl) DeleteTopic(ctx context.Context, actor, topicID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		t, plan, err := lockTopic(ctx, st, topicID)
		if err != nil {
			return err
		}
		return s.topics.DeleteTopic(ctx, st, actor, plan, t)
	})
	if err != nil {
		return s.fail(ctx, "delete topic", "failed to delete topic", err)
	}
	return nil
}
