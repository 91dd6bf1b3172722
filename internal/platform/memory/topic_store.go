package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// TopicStore implements store.TopicStore in memory.
type TopicStore struct {
	sess *session
}

var _ store.TopicStore = (*TopicStore)(nil)

// Create implements store.TopicStore.Create.
func (s *TopicStore) Create(ctx context.Context, topic *domain.Topic) error {
	if err := topic.Validate(); err != nil {
		return err
	}

	st, unlock := s.sess.acquire()
	defer unlock()

	if _, ok := st.plans[topic.PlanID]; !ok {
		return fmt.Errorf("%w: plan %s not found", store.ErrInvalidEntity, topic.PlanID)
	}
	if _, ok := st.topics[topic.ID]; ok {
		return fmt.Errorf("%w: topic %s", store.ErrDuplicate, topic.ID)
	}
	for _, t := range st.topics {
		if t.PlanID == topic.PlanID && t.OrderIndex == topic.OrderIndex {
			return store.ErrOrderIndexTaken
		}
	}

	stored := *topic
	st.topics[topic.ID] = &stored
	return nil
}

// GetByID implements store.TopicStore.GetByID.
func (s *TopicStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	t, ok := st.topics[id]
	if !ok {
		return nil, store.ErrTopicNotFound
	}
	c := *t
	return &c, nil
}

// Update implements store.TopicStore.Update.
func (s *TopicStore) Update(ctx context.Context, topic *domain.Topic) error {
	if err := topic.Validate(); err != nil {
		return err
	}

	st, unlock := s.sess.acquire()
	defer unlock()

	existing, ok := st.topics[topic.ID]
	if !ok {
		return store.ErrTopicNotFound
	}

	existing.Title = topic.Title
	existing.MaterialLink = topic.MaterialLink
	existing.Notes = topic.Notes
	existing.Status = topic.Status
	existing.UpdatedAt = topic.UpdatedAt
	return nil
}

// Delete implements store.TopicStore.Delete.
func (s *TopicStore) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	if _, ok := st.topics[id]; !ok {
		return store.ErrTopicNotFound
	}
	delete(st.topics, id)
	return nil
}

// ListByPlan implements store.TopicStore.ListByPlan.
func (s *TopicStore) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Topic, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	out := make([]*domain.Topic, 0)
	for _, t := range st.topics {
		if t.PlanID == planID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

// NextOrderIndex implements store.TopicStore.NextOrderIndex.
func (s *TopicStore) NextOrderIndex(ctx context.Context, planID uuid.UUID) (int, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	count, maxIndex := 0, -1
	for _, t := range st.topics {
		if t.PlanID != planID {
			continue
		}
		count++
		if t.OrderIndex > maxIndex {
			maxIndex = t.OrderIndex
		}
	}
	return max(count, maxIndex+1), nil
}
