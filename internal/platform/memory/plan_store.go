package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// PlanStore implements store.PlanStore in memory.
type PlanStore struct {
	sess *session
}

var _ store.PlanStore = (*PlanStore)(nil)

func (st *state) enrollmentCount(planID uuid.UUID) int {
	n := 0
	for _, e := range st.enrollments {
		if e.PlanID == planID {
			n++
		}
	}
	return n
}

// readPlan returns a detached copy with a fresh enrollment count.
func (st *state) readPlan(p *domain.Plan) *domain.Plan {
	c := clonePlan(p)
	c.EnrollmentCount = st.enrollmentCount(p.ID)
	return c
}

// Create implements store.PlanStore.Create.
func (s *PlanStore) Create(ctx context.Context, plan *domain.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	st, unlock := s.sess.acquire()
	defer unlock()

	if _, ok := st.plans[plan.ID]; ok {
		return fmt.Errorf("%w: plan %s", store.ErrDuplicate, plan.ID)
	}
	if _, ok := st.users[plan.OwnerID]; !ok {
		return fmt.Errorf("%w: owner %s not found", store.ErrInvalidEntity, plan.OwnerID)
	}

	stored := clonePlan(plan)
	stored.EnrollmentCount = 0
	st.plans[plan.ID] = stored
	return nil
}

// GetByID implements store.PlanStore.GetByID.
func (s *PlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	p, ok := st.plans[id]
	if !ok {
		return nil, store.ErrPlanNotFound
	}
	return st.readPlan(p), nil
}

// GetForUpdate implements store.PlanStore.GetForUpdate. Inside a unit of
// work the database lock is already held.
func (s *PlanStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return s.GetByID(ctx, id)
}

// Update implements store.PlanStore.Update.
func (s *PlanStore) Update(ctx context.Context, plan *domain.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	st, unlock := s.sess.acquire()
	defer unlock()

	existing, ok := st.plans[plan.ID]
	if !ok {
		return store.ErrPlanNotFound
	}

	next := clonePlan(plan)
	next.OwnerID = existing.OwnerID
	next.ViewCount = existing.ViewCount
	next.CreatedAt = existing.CreatedAt
	next.EnrollmentCount = 0
	st.plans[plan.ID] = next
	return nil
}

// Delete implements store.PlanStore.Delete, cascading to topics and
// enrollments.
func (s *PlanStore) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	if _, ok := st.plans[id]; !ok {
		return store.ErrPlanNotFound
	}

	delete(st.plans, id)
	for topicID, t := range st.topics {
		if t.PlanID == id {
			delete(st.topics, topicID)
		}
	}
	for enrollmentID, e := range st.enrollments {
		if e.PlanID == id {
			delete(st.enrollments, enrollmentID)
		}
	}
	return nil
}

// IncrementViewCount implements store.PlanStore.IncrementViewCount.
func (s *PlanStore) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	st, unlock := s.sess.acquire()
	defer unlock()

	p, ok := st.plans[id]
	if !ok {
		return store.ErrPlanNotFound
	}
	p.ViewCount++
	return nil
}

// ListByOwner implements store.PlanStore.ListByOwner.
func (s *PlanStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Plan, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	out := make([]*domain.Plan, 0)
	for _, p := range st.plans {
		if p.OwnerID == ownerID {
			out = append(out, st.readPlan(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Discover implements store.PlanStore.Discover.
func (s *PlanStore) Discover(ctx context.Context, q store.DiscoverQuery) ([]*domain.Plan, error) {
	st, unlock := s.sess.acquire()
	defer unlock()

	needle := strings.ToLower(strings.TrimSpace(q.Query))
	matches := make([]*domain.Plan, 0)
	for _, p := range st.plans {
		if p.Visibility != domain.VisibilityPublic {
			continue
		}
		if q.Mode == store.DiscoverSearch && !matchesSearch(p, needle) {
			continue
		}
		matches = append(matches, st.readPlan(p))
	}

	if q.Mode == store.DiscoverPopular {
		sort.SliceStable(matches, func(i, j int) bool {
			a, b := matches[i], matches[j]
			if a.EnrollmentCount != b.EnrollmentCount {
				return a.EnrollmentCount > b.EnrollmentCount
			}
			return newer(a, b)
		})
	} else {
		sortNewestFirst(matches)
	}

	start := q.Offset()
	if start < 0 || start >= len(matches) {
		return []*domain.Plan{}, nil
	}
	end := start + q.Size
	if end < start || end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], nil
}

func matchesSearch(p *domain.Plan, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(tag, needle) {
			return true
		}
	}
	return false
}

func newer(a, b *domain.Plan) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func sortNewestFirst(plans []*domain.Plan) {
	sort.SliceStable(plans, func(i, j int) bool { return newer(plans[i], plans[j]) })
}
