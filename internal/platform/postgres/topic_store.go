package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// PostgresTopicStore implements the store.TopicStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTopicStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTopicStore creates a new PostgreSQL implementation of the TopicStore interface.
func NewPostgresTopicStore(db store.DBTX, logger *slog.Logger) *PostgresTopicStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTopicStore{
		db:     db,
		logger: logger.With(slog.String("component", "topic_store")),
	}
}

// Ensure PostgresTopicStore implements store.TopicStore interface
var _ store.TopicStore = (*PostgresTopicStore)(nil)

const topicColumns = `id, plan_id, title, material_link, notes, status, order_index, created_at, updated_at`

func scanTopic(row rowScanner) (*domain.Topic, error) {
	var (
		t      domain.Topic
		status string
	)
	err := row.Scan(
		&t.ID,
		&t.PlanID,
		&t.Title,
		&t.MaterialLink,
		&t.Notes,
		&status,
		&t.OrderIndex,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TopicStatus(status)
	return &t, nil
}

// Create implements store.TopicStore.Create
func (s *PostgresTopicStore) Create(ctx context.Context, topic *domain.Topic) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := topic.Validate(); err != nil {
		log.Warn("topic validation failed during create",
			slog.String("error", err.Error()),
			slog.String("topic_id", topic.ID.String()))
		return err
	}

	query := `
		INSERT INTO topics (id, plan_id, title, material_link, notes, status, order_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		topic.ID,
		topic.PlanID,
		topic.Title,
		topic.MaterialLink,
		topic.Notes,
		string(topic.Status),
		topic.OrderIndex,
		topic.CreatedAt,
		topic.UpdatedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err) && constraintName(err) == constraintTopicsPlanOrder:
			log.Warn("order index already taken",
				slog.String("plan_id", topic.PlanID.String()),
				slog.Int("order_index", topic.OrderIndex))
			return MapUniqueViolation(err, "topic", constraintTopicsPlanOrder, store.ErrOrderIndexTaken)
		case IsForeignKeyViolation(err):
			log.Warn("foreign key violation during topic creation",
				slog.String("topic_id", topic.ID.String()),
				slog.String("plan_id", topic.PlanID.String()))
			return fmt.Errorf("%w: plan %s not found", store.ErrInvalidEntity, topic.PlanID)
		}
		log.Error("failed to create topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", topic.ID.String()))
		return MapError(err)
	}

	log.Info("topic created successfully",
		slog.String("topic_id", topic.ID.String()),
		slog.String("plan_id", topic.PlanID.String()),
		slog.Int("order_index", topic.OrderIndex))
	return nil
}

// GetByID implements store.TopicStore.GetByID
func (s *PostgresTopicStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	topic, err := scanTopic(s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("topic not found", slog.String("topic_id", id.String()))
			return nil, store.ErrTopicNotFound
		}
		log.Error("failed to get topic by ID",
			slog.String("error", err.Error()),
			slog.String("topic_id", id.String()))
		return nil, err
	}
	return topic, nil
}

// Update implements store.TopicStore.Update
func (s *PostgresTopicStore) Update(ctx context.Context, topic *domain.Topic) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := topic.Validate(); err != nil {
		log.Warn("topic validation failed during update",
			slog.String("error", err.Error()),
			slog.String("topic_id", topic.ID.String()))
		return err
	}

	query := `
		UPDATE topics
		SET title = $1, material_link = $2, notes = $3, status = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		topic.Title,
		topic.MaterialLink,
		topic.Notes,
		string(topic.Status),
		topic.UpdatedAt,
		topic.ID,
	)
	if err != nil {
		log.Error("failed to update topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", topic.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTopicNotFound)
}

// Delete implements store.TopicStore.Delete
func (s *PostgresTopicStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete topic",
			slog.String("error", err.Error()),
			slog.String("topic_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTopicNotFound); err != nil {
		return err
	}

	log.Info("topic deleted successfully", slog.String("topic_id", id.String()))
	return nil
}

// ListByPlan implements store.TopicStore.ListByPlan
func (s *PostgresTopicStore) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE plan_id = $1 ORDER BY order_index`, planID)
	if err != nil {
		log.Error("failed to list topics",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	topics := make([]*domain.Topic, 0)
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}

// NextOrderIndex implements store.TopicStore.NextOrderIndex
func (s *PostgresTopicStore) NextOrderIndex(ctx context.Context, planID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var count, next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(order_index) + 1, 0) FROM topics WHERE plan_id = $1`, planID,
	).Scan(&count, &next)
	if err != nil {
		log.Error("failed to compute next order index",
			slog.String("error", err.Error()),
			slog.String("plan_id", planID.String()))
		return 0, err
	}

	return max(count, next), nil
}
