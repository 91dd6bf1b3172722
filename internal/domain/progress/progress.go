// Package progress derives completion figures for learning plans.
//
// Two independent projections exist over one topic list: the owner's
// checklist, read from each Topic's status, and a learner's progress, read
// from the enrollment's completion set intersected with the plan's current
// topics. Nothing here is stored; snapshots are recomputed per request.
package progress

import (
	"math"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// Snapshot is a derived view of completion counts.
type Snapshot struct {
	Completed  int `json:"completed_count"`
	InProgress int `json:"in_progress_count"`
	NotStarted int `json:"not_started_count"`
	Total      int `json:"total_count"`
	Percentage int `json:"percentage"`
}

// Finished reports whether every topic is completed. An empty plan is
// never finished.
func (s Snapshot) Finished() bool {
	return s.Total > 0 && s.Completed == s.Total
}

// Aggregate summarizes learner progress across a plan.
type Aggregate struct {
	EnrollmentCount          int `json:"enrollment_count"`
	AverageLearnerPercentage int `json:"average_learner_percentage"`
}

// OwnerProgress counts topics by their checklist status.
func OwnerProgress(topics []*domain.Topic) Snapshot {
	var s Snapshot
	for _, t := range topics {
		switch t.Status {
		case domain.TopicStatusCompleted:
			s.Completed++
		case domain.TopicStatusInProgress:
			s.InProgress++
		default:
			s.NotStarted++
		}
	}
	s.Total = len(topics)
	s.Percentage = Percent(fraction(s.Completed, s.Total))
	return s
}

// EnrollmentProgress counts the learner's completed topics that still exist
// in the plan. Stale or foreign IDs never reach the numerator. Learners have
// no in-progress state.
func EnrollmentProgress(completed []uuid.UUID, topics []*domain.Topic) Snapshot {
	done := completedCount(completed, topics)
	return Snapshot{
		Completed:  done,
		NotStarted: len(topics) - done,
		Total:      len(topics),
		Percentage: Percent(fraction(done, len(topics))),
	}
}

// PlanAggregate averages learner progress over all current enrollments.
// Fractions are averaged unrounded and rounded once at the end.
func PlanAggregate(topics []*domain.Topic, enrollments []*domain.Enrollment) Aggregate {
	if len(enrollments) == 0 {
		return Aggregate{}
	}

	var sum float64
	for _, e := range enrollments {
		sum += fraction(completedCount(e.CompletedTopicIDs, topics), len(topics))
	}

	return Aggregate{
		EnrollmentCount:          len(enrollments),
		AverageLearnerPercentage: Percent(sum / float64(len(enrollments))),
	}
}

// Percent converts a fraction in [0,1] to a whole percentage, rounding half
// away from zero.
func Percent(f float64) int {
	return int(math.Round(f * 100))
}

func fraction(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func completedCount(completed []uuid.UUID, topics []*domain.Topic) int {
	if len(completed) == 0 || len(topics) == 0 {
		return 0
	}

	current := make(map[uuid.UUID]struct{}, len(topics))
	for _, t := range topics {
		current[t.ID] = struct{}{}
	}

	n := 0
	for _, id := range completed {
		if _, ok := current[id]; ok {
			n++
			// guards against duplicate IDs in the set
			delete(current, id)
		}
	}
	return n
}
