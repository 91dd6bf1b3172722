package store

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// DiscoverMode selects the ordering and filtering of a discovery listing.
type DiscoverMode string

// Discovery modes
const (
	// DiscoverPopular orders by enrollment count, most enrolled first.
	DiscoverPopular DiscoverMode = "popular"
	// DiscoverRecent orders by creation time, newest first.
	DiscoverRecent DiscoverMode = "recent"
	// DiscoverSearch matches Query against title, description and tags.
	DiscoverSearch DiscoverMode = "search"
)

// DiscoverQuery describes one page of a discovery listing. Only PUBLIC
// plans are ever returned.
type DiscoverQuery struct {
	Mode  DiscoverMode
	Query string
	Page  int
	Size  int
}

// Offset returns the number of rows to skip. It saturates at math.MaxInt
// instead of wrapping when Page*Size does not fit in an int.
func (q DiscoverQuery) Offset() int {
	if q.Page <= 0 || q.Size <= 0 {
		return 0
	}
	if q.Page > math.MaxInt/q.Size {
		return math.MaxInt
	}
	return q.Page * q.Size
}

// PlanStore defines the interface for plan data persistence.
//
// Plans returned by the store carry a freshly counted EnrollmentCount.
type PlanStore interface {
	// Create saves a new plan. Returns validation errors if the plan is invalid.
	Create(ctx context.Context, plan *domain.Plan) error

	// GetByID retrieves a plan by its unique ID.
	// Returns ErrPlanNotFound if the plan does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error)

	// GetForUpdate retrieves a plan and locks it until the surrounding unit
	// of work ends. Outside a unit of work it behaves like GetByID.
	// Returns ErrPlanNotFound if the plan does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Plan, error)

	// Update persists the mutable fields of an existing plan: title,
	// description, visibility, dates, tags and updated_at.
	// Returns ErrPlanNotFound if the plan does not exist.
	Update(ctx context.Context, plan *domain.Plan) error

	// Delete removes a plan together with its topics, enrollments and
	// completion records. Returns ErrPlanNotFound if the plan does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// IncrementViewCount adds one to the plan's view counter.
	// Returns ErrPlanNotFound if the plan does not exist.
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	// ListByOwner returns the owner's plans, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Plan, error)

	// Discover returns one page of PUBLIC plans ordered per q.Mode.
	Discover(ctx context.Context, q DiscoverQuery) ([]*domain.Plan, error)
}
