package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// PostgresEnrollmentStore implements the store.EnrollmentStore interface
// using a PostgreSQL database as the storage backend. Completion sets live in
// enrollment_topic_completions, one row per completed topic.
type PostgresEnrollmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEnrollmentStore creates a new PostgreSQL implementation of the EnrollmentStore interface.
func NewPostgresEnrollmentStore(db store.DBTX, logger *slog.Logger) *PostgresEnrollmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEnrollmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "enrollment_store")),
	}
}

// Ensure PostgresEnrollmentStore implements store.EnrollmentStore interface
var _ store.EnrollmentStore = (*PostgresEnrollmentStore)(nil)

const enrollmentColumns = `en.id, en.plan_id, en.learner_id, en.created_at, en.last_activity_at`

func scanEnrollment(row rowScanner, extra ...any) (*domain.Enrollment, error) {
	var e domain.Enrollment
	dest := append([]any{&e.ID, &e.PlanID, &e.LearnerID, &e.CreatedAt, &e.LastActivityAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.CompletedTopicIDs = []uuid.UUID{}
	return &e, nil
}

// Create implements store.EnrollmentStore.Create
func (s *PostgresEnrollmentStore) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := enrollment.Validate(); err != nil {
		log.Warn("enrollment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("enrollment_id", enrollment.ID.String()))
		return err
	}

	query := `
		INSERT INTO enrollments (id, plan_id, learner_id, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		enrollment.ID,
		enrollment.PlanID,
		enrollment.LearnerID,
		enrollment.CreatedAt,
		enrollment.LastActivityAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err) && constraintName(err) == constraintEnrollmentsUnique:
			log.Warn("learner already enrolled",
				slog.String("plan_id", enrollment.PlanID.String()),
				slog.String("learner_id", enrollment.LearnerID.String()))
			return MapUniqueViolation(err, "enrollment", constraintEnrollmentsUnique, store.ErrEnrollmentExists)
		case IsForeignKeyViolation(err):
			log.Warn("foreign key violation during enrollment creation",
				slog.String("constraint", constraintName(err)),
				slog.String("enrollment_id", enrollment.ID.String()))
			return fmt.Errorf("%w: plan %s or learner %s not found",
				store.ErrInvalidEntity, enrollment.PlanID, enrollment.LearnerID)
		}
		log.Error("failed to create enrollment",
			slog.String("error", err.Error()),
			slog.String("enrollment_id", enrollment.ID.String()))
		return MapError(err)
	}

	log.Info("enrollment created successfully",
		slog.String("enrollment_id", enrollment.ID.String()),
		slog.String("plan_id", enrollment.PlanID.String()),
		slog.String("learner_id", enrollment.LearnerID.String()))
	return nil
}

func (s *PostgresEnrollmentStore) getOne(ctx context.Context, where string, args ...any) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments en WHERE ` + where
	e, err := scanEnrollment(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEnrollmentNotFound
		}
		return nil, err
	}

	ids, err := s.completedTopics(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.CompletedTopicIDs = ids
	return e, nil
}

func (s *PostgresEnrollmentStore) completedTopics(ctx context.Context, enrollmentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic_id FROM enrollment_topic_completions
		WHERE enrollment_id = $1
		ORDER BY completed_at, topic_id
	`, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// attachCompletions loads the completion sets of every enrollment matching
// filter (a condition on en) in one query.
func (s *PostgresEnrollmentStore) attachCompletions(
	ctx context.Context,
	enrollments []*domain.Enrollment,
	filter string,
	arg any,
) error {
	if len(enrollments) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Enrollment, len(enrollments))
	for _, e := range enrollments {
		byID[e.ID] = e
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.enrollment_id, c.topic_id
		FROM enrollment_topic_completions c
		JOIN enrollments en ON en.id = c.enrollment_id
		WHERE `+filter+`
		ORDER BY c.completed_at, c.topic_id
	`, arg)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var enrollmentID, topicID uuid.UUID
		if err := rows.Scan(&enrollmentID, &topicID); err != nil {
			return err
		}
		if e, ok := byID[enrollmentID]; ok {
			e.CompletedTopicIDs = append(e.CompletedTopicIDs, topicID)
		}
	}
	return rows.Err()
}

func (s *PostgresEnrollmentStore) list(ctx context.Context, filter, order string, arg any) ([]*domain.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments en WHERE `+filter+` ORDER BY `+order, arg)
	if err != nil {
		return nil, err
	}

	enrollments := make([]*domain.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// released before the next query so a transaction's single connection is free
	_ = rows.Close()

	if err := s.attachCompletions(ctx, enrollments, filter, arg); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// GetByID implements store.EnrollmentStore.GetByID
func (s *PostgresEnrollmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	e, err := s.getOne(ctx, `en.id = $1`, id)
	if err != nil && !errors.Is(err, store.ErrEnrollmentNotFound) {
		log.Error("failed to get enrollment by ID",
			slog.String("error", err.Error()),
			slog.String("enrollment_id", id.String()))
	}
	return e, err
}

// GetByPlanAndLearner implements store.EnrollmentStore.GetByPlanAndLearner
func (s *PostgresEnrollmentStore) GetByPlanAndLearner(
	ctx context.Context,
	planID, learnerID uuid.UUID,
) (*domain.Enrollment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	e, err := s.getOne(ctx, `en.plan_id = $1 AND en.learner_id = $2`, planID, learnerID)
	if err != nil && !errors.Is(err, store.ErrEnrollmentNotFound) {
		log.Error("failed to get enrollment by plan and learner",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()),
			slog.String("learner_id", learnerID.String()))
	}
	return e, err
}

// ListByPlan implements store.EnrollmentStore.ListByPlan
func (s *PostgresEnrollmentStore) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Enrollment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	enrollments, err := s.list(ctx, `en.plan_id = $1`, `en.created_at, en.id`, planID)
	if err != nil {
		log.Error("failed to list enrollments by plan",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()))
		return nil, err
	}
	return enrollments, nil
}

// ListParticipants implements store.EnrollmentStore.ListParticipants
func (s *PostgresEnrollmentStore) ListParticipants(ctx context.Context, planID uuid.UUID) ([]store.Participant, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+enrollmentColumns+`, u.username
		FROM enrollments en
		JOIN users u ON u.id = en.learner_id
		WHERE en.plan_id = $1
		ORDER BY en.created_at, en.id
	`, planID)
	if err != nil {
		log.Error("failed to list participants",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()))
		return nil, err
	}

	participants := make([]store.Participant, 0)
	enrollments := make([]*domain.Enrollment, 0)
	for rows.Next() {
		var username string
		e, err := scanEnrollment(rows, &username)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		participants = append(participants, store.Participant{Enrollment: e, Username: username})
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := s.attachCompletions(ctx, enrollments, `en.plan_id = $1`, planID); err != nil {
		log.Error("failed to load participant completions",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()))
		return nil, err
	}
	return participants, nil
}

// ListByLearner implements store.EnrollmentStore.ListByLearner
func (s *PostgresEnrollmentStore) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.Enrollment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	enrollments, err := s.list(ctx, `en.learner_id = $1`, `en.created_at DESC, en.id DESC`, learnerID)
	if err != nil {
		log.Error("failed to list enrollments by learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}
	return enrollments, nil
}

// SetTopicCompletion implements store.EnrollmentStore.SetTopicCompletion
func (s *PostgresEnrollmentStore) SetTopicCompletion(
	ctx context.Context,
	enrollmentID, topicID uuid.UUID,
	completed bool,
	at time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET last_activity_at = $1 WHERE id = $2`, at, enrollmentID)
	if err != nil {
		log.Error("failed to touch enrollment",
			slog.String("error", err.Error()),
			slog.String("enrollment_id", enrollmentID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrEnrollmentNotFound); err != nil {
		return err
	}

	if completed {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO enrollment_topic_completions (enrollment_id, topic_id, completed_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (enrollment_id, topic_id) DO NOTHING
		`, enrollmentID, topicID, at)
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM enrollment_topic_completions WHERE enrollment_id = $1 AND topic_id = $2`,
			enrollmentID, topicID)
	}
	if err != nil {
		if IsForeignKeyViolation(err) && constraintName(err) == constraintCompletionsTopicRef {
			return fmt.Errorf("%w: topic %s not found", store.ErrInvalidEntity, topicID)
		}
		log.Error("failed to record topic completion",
			slog.String("error", err.Error()),
			slog.String("enrollment_id", enrollmentID.String()),
			slog.String("topic_id", topicID.String()))
		return MapError(err)
	}

	log.Debug("topic completion recorded",
		slog.String("enrollment_id", enrollmentID.String()),
		slog.String("topic_id", topicID.String()),
		slog.Bool("completed", completed))
	return nil
}

// Delete implements store.EnrollmentStore.Delete
func (s *PostgresEnrollmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete enrollment",
			slog.String("error", err.Error()),
			slog.String("enrollment_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrEnrollmentNotFound); err != nil {
		return err
	}

	log.Info("enrollment deleted successfully", slog.String("enrollment_id", id.String()))
	return nil
}

// PruneTopic implements store.EnrollmentStore.PruneTopic
func (s *PostgresEnrollmentStore) PruneTopic(ctx context.Context, topicID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM enrollment_topic_completions WHERE topic_id = $1`, topicID)
	if err != nil {
		log.Error("failed to prune topic completions",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()))
		return MapError(err)
	}

	if n, err := result.RowsAffected(); err == nil {
		log.Debug("pruned topic completions",
			slog.String("topic_id", topicID.String()),
			slog.Int64("rows", n))
	}
	return nil
}
