package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// PostgresPlanStore implements the store.PlanStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPlanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlanStore creates a new PostgreSQL implementation of the PlanStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresPlanStore(db store.DBTX, logger *slog.Logger) *PostgresPlanStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPlanStore{
		db:     db,
		logger: logger.With(slog.String("component", "plan_store")),
	}
}

// Ensure PostgresPlanStore implements store.PlanStore interface
var _ store.PlanStore = (*PostgresPlanStore)(nil)

// planColumns selects a plan with its derived enrollment count. Queries
// using it alias plans as p.
const planColumns = `
	p.id, p.owner_id, p.title, p.description, p.visibility,
	p.start_date, p.end_date, p.tags, p.view_count, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM enrollments e WHERE e.plan_id = p.id) AS enrollment_count
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.Plan, error) {
	var (
		p          domain.Plan
		visibility string
		start, end sql.NullTime
	)
	// pgtype.Map is not safe for concurrent use
	tags := pgtype.NewMap().SQLScanner(&p.Tags)

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&visibility,
		&start,
		&end,
		tags,
		&p.ViewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.EnrollmentCount,
	)
	if err != nil {
		return nil, err
	}

	p.Visibility = domain.Visibility(visibility)
	if start.Valid {
		t := start.Time
		p.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		p.EndDate = &t
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func (s *PostgresPlanStore) queryPlans(ctx context.Context, query string, args ...any) ([]*domain.Plan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	plans := make([]*domain.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// Create implements store.PlanStore.Create
// Returns store.ErrInvalidEntity if the owner does not exist.
func (s *PostgresPlanStore) Create(ctx context.Context, plan *domain.Plan) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := plan.Validate(); err != nil {
		log.Warn("plan validation failed during create",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return err
	}

	query := `
		INSERT INTO plans (id, owner_id, title, description, visibility,
			start_date, end_date, tags, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		plan.ID,
		plan.OwnerID,
		plan.Title,
		plan.Description,
		string(plan.Visibility),
		plan.StartDate,
		plan.EndDate,
		tagsArg(plan.Tags),
		plan.ViewCount,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during plan creation",
				slog.String("plan_id", plan.ID.String()),
				slog.String("owner_id", plan.OwnerID.String()))
			return fmt.Errorf("%w: owner %s not found", store.ErrInvalidEntity, plan.OwnerID)
		}
		log.Error("failed to create plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return MapError(err)
	}

	log.Info("plan created successfully",
		slog.String("plan_id", plan.ID.String()),
		slog.String("owner_id", plan.OwnerID.String()),
		slog.String("visibility", string(plan.Visibility)))
	return nil
}

// tagsArg never sends NULL for the NOT NULL tags column.
func tagsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// GetByID implements store.PlanStore.GetByID
func (s *PostgresPlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving plan by ID", slog.String("plan_id", id.String()))

	query := `SELECT ` + planColumns + ` FROM plans p WHERE p.id = $1`
	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("plan not found", slog.String("plan_id", id.String()))
			return nil, store.ErrPlanNotFound
		}
		log.Error("failed to get plan by ID",
			slog.String("error", err.Error()),
			slog.String("plan_id", id.String()))
		return nil, err
	}
	return plan, nil
}

// GetForUpdate implements store.PlanStore.GetForUpdate
// The row lock is taken first so the enrollment count read afterwards is
// stable for the rest of the transaction.
func (s *PostgresPlanStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var locked uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM plans WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlanNotFound
		}
		log.Error("failed to lock plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", id.String()))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Update implements store.PlanStore.Update
func (s *PostgresPlanStore) Update(ctx context.Context, plan *domain.Plan) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := plan.Validate(); err != nil {
		log.Warn("plan validation failed during update",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return err
	}

	query := `
		UPDATE plans
		SET title = $1, description = $2, visibility = $3, start_date = $4,
			end_date = $5, tags = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		plan.Title,
		plan.Description,
		string(plan.Visibility),
		plan.StartDate,
		plan.EndDate,
		tagsArg(plan.Tags),
		plan.UpdatedAt,
		plan.ID,
	)
	if err != nil {
		log.Error("failed to update plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", plan.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrPlanNotFound); err != nil {
		log.Debug("plan not found for update", slog.String("plan_id", plan.ID.String()))
		return err
	}

	log.Info("plan updated successfully", slog.String("plan_id", plan.ID.String()))
	return nil
}

// Delete implements store.PlanStore.Delete
// Topics, enrollments and completion rows go with it through ON DELETE CASCADE.
func (s *PostgresPlanStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrPlanNotFound); err != nil {
		return err
	}

	log.Info("plan deleted successfully", slog.String("plan_id", id.String()))
	return nil
}

// IncrementViewCount implements store.PlanStore.IncrementViewCount
func (s *PostgresPlanStore) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `UPDATE plans SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to increment plan view count",
			slog.String("error", err.Error()),
			slog.String("plan_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrPlanNotFound)
}

// ListByOwner implements store.PlanStore.ListByOwner
func (s *PostgresPlanStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Plan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + planColumns + `
		FROM plans p
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC, p.id
	`
	plans, err := s.queryPlans(ctx, query, ownerID)
	if err != nil {
		log.Error("failed to list plans by owner",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, err
	}
	return plans, nil
}

// Discover implements store.PlanStore.Discover
func (s *PostgresPlanStore) Discover(ctx context.Context, q store.DiscoverQuery) ([]*domain.Plan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	args := []any{string(domain.VisibilityPublic)}
	where := `p.visibility = $1`
	if q.Mode == store.DiscoverSearch && strings.TrimSpace(q.Query) != "" {
		args = append(args, "%"+escapeLike(strings.TrimSpace(q.Query))+"%")
		where += ` AND (p.title ILIKE $2 OR p.description ILIKE $2
			OR EXISTS (SELECT 1 FROM unnest(p.tags) AS t(tag) WHERE t.tag ILIKE $2))`
	}

	order := `p.created_at DESC, p.id`
	if q.Mode == store.DiscoverPopular {
		order = `enrollment_count DESC, p.created_at DESC, p.id`
	}

	args = append(args, q.Size, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM plans p WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		planColumns, where, order, len(args)-1, len(args))

	plans, err := s.queryPlans(ctx, query, args...)
	if err != nil {
		log.Error("failed to discover plans",
			slog.String("error", err.Error()),
			slog.String("mode", string(q.Mode)))
		return nil, err
	}

	log.Debug("discovered plans",
		slog.String("mode", string(q.Mode)),
		slog.Int("page", q.Page),
		slog.Int("count", len(plans)))
	return plans, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
