package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// EnrollmentStore implements store.EnrollmentStore in memory.
type EnrollmentStore struct {
	sess *session
}

var _ store.EnrollmentStore = (*EnrollmentStore)(nil)

// Create implements store.EnrollmentStore.Create.
func (s *EnrollmentStore) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	if err := enrollment.Validate(); err != nil {
		return err
	}

	st, unlock := s.sess.acquire()
	defer unlock()

	if _, ok := st.plans[enrollment.PlanID]; !ok {
		return fmt.Errorf("%w: plan %s not found", store.ErrInvalidEntity, enrollment.PlanID)
	}
	if _, ok := st.users[enrollment.LearnerID]; !ok {
		return fmt.Errorf("%w: learner %s not found", store.ErrInvalidEntity, enrollment.LearnerID)
	}
	for _, e := range st.enrollments {
		if e.PlanID == enrollment.PlanID && e.LearnerID == enrollment.LearnerID {
			return store.ErrEnrollmentExists
		}
	}

	stored := enrollment.Clone()
	stored.CompletedTopicIDs = []uuid.UUID{}
	st.enrollments[enrollment.ID] = stored
	return nil
}

// GetByID implements store.EnrollmentStore.GetByID.
func (s *EnrollmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	e, ok := st.enrollments[id]
	if !ok {
		return nil, store.ErrEnrollmentNotFound
	}
	return e.Clone(), nil
}

// GetByPlanAndLearner implements store.EnrollmentStore.GetByPlanAndLearner.
func (s *EnrollmentStore) GetByPlanAndLearner(
	ctx context.Context,
	planID, learnerID uuid.UUID,
) (*domain.Enrollment, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	for _, e := range st.enrollments {
		if e.PlanID == planID && e.LearnerID == learnerID {
			return e.Clone(), nil
		}
	}
	return nil, store.ErrEnrollmentNotFound
}

func (st *state) enrollmentsWhere(match func(*domain.Enrollment) bool) []*domain.Enrollment {
	out := make([]*domain.Enrollment, 0)
	for _, e := range st.enrollments {
		if match(e) {
			out = append(out, e.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ListByPlan implements store.EnrollmentStore.ListByPlan.
func (s *EnrollmentStore) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Enrollment, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	return st.enrollmentsWhere(func(e *domain.Enrollment) bool { return e.PlanID == planID }), nil
}

// ListParticipants implements store.EnrollmentStore.ListParticipants.
func (s *EnrollmentStore) ListParticipants(ctx context.Context, planID uuid.UUID) ([]store.Participant, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	enrollments := st.enrollmentsWhere(func(e *domain.Enrollment) bool { return e.PlanID == planID })
	out := make([]store.Participant, 0, len(enrollments))
	for _, e := range enrollments {
		p := store.Participant{Enrollment: e}
		if u, ok := st.users[e.LearnerID]; ok {
			p.Username = u.Username
		}
		out = append(out, p)
	}
	return out, nil
}

// ListByLearner implements store.EnrollmentStore.ListByLearner.
func (s *EnrollmentStore) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.Enrollment, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	out := st.enrollmentsWhere(func(e *domain.Enrollment) bool { return e.LearnerID == learnerID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SetTopicCompletion implements store.EnrollmentStore.SetTopicCompletion.
func (s *EnrollmentStore) SetTopicCompletion(
	ctx context.Context,
	enrollmentID, topicID uuid.UUID,
	completed bool,
	at time.Time,
) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	e, ok := st.enrollments[enrollmentID]
	if !ok {
		return store.ErrEnrollmentNotFound
	}
	if _, ok := st.topics[topicID]; !ok && completed {
		return fmt.Errorf("%w: topic %s not found", store.ErrInvalidEntity, topicID)
	}

	e.MarkTopic(topicID, completed, at)
	e.LastActivityAt = at
	return nil
}

// Delete implements store.EnrollmentStore.Delete.
func (s *EnrollmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	if _, ok := st.enrollments[id]; !ok {
		return store.ErrEnrollmentNotFound
	}
	delete(st.enrollments, id)
	return nil
}

// PruneTopic implements store.EnrollmentStore.PruneTopic.
func (s *EnrollmentStore) PruneTopic(ctx context.Context, topicID uuid.UUID) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	for _, e := range st.enrollments {
		e.PruneTopic(topicID)
	}
	return nil
}
