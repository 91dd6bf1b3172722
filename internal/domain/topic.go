package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TopicStatus is the owner's checklist state for a topic. It is independent
// of any learner's progress.
type TopicStatus string

// Possible topic status values
const (
	TopicStatusNotStarted TopicStatus = "NOT_STARTED"
	TopicStatusInProgress TopicStatus = "IN_PROGRESS"
	TopicStatusCompleted  TopicStatus = "COMPLETED"
)

// MaxTopicTitleLength bounds topic titles.
const MaxTopicTitleLength = 200

// Topic validation errors
var (
	ErrEmptyTopicID       = fmt.Errorf("%w: topic ID cannot be empty", ErrValidation)
	ErrEmptyTopicPlanID   = fmt.Errorf("%w: topic plan ID cannot be empty", ErrValidation)
	ErrEmptyTopicTitle    = fmt.Errorf("%w: topic title cannot be empty", ErrValidation)
	ErrTopicTitleTooLong  = fmt.Errorf("%w: topic title is too long", ErrValidation)
	ErrInvalidTopicStatus = fmt.Errorf("%w: invalid topic status", ErrValidation)
	ErrInvalidMaterialURL = fmt.Errorf("%w: material link must be an http or https URL", ErrValidation)
	ErrInvalidOrderIndex  = fmt.Errorf("%w: order index cannot be negative", ErrValidation)
)

var linkValidator = validator.New()

// ParseTopicStatus converts a case-insensitive name into a TopicStatus.
func ParseTopicStatus(s string) (TopicStatus, error) {
	status := TopicStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", ErrInvalidTopicStatus
	}
	return status, nil
}

// Valid reports whether s is a known status.
func (s TopicStatus) Valid() bool {
	switch s {
	case TopicStatusNotStarted, TopicStatusInProgress, TopicStatusCompleted:
		return true
	}
	return false
}

// Topic is a single curriculum item. OrderIndex is assigned once on creation
// and never renumbered, so deletions leave gaps.
type Topic struct {
	ID           uuid.UUID   `json:"id"`
	PlanID       uuid.UUID   `json:"plan_id"`
	Title        string      `json:"title"`
	MaterialLink string      `json:"material_link,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	Status       TopicStatus `json:"status"`
	OrderIndex   int         `json:"order_index"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TopicFields holds the author-supplied attributes of a new topic.
type TopicFields struct {
	Title        string
	MaterialLink string
	Notes        string
	Status       TopicStatus
}

// TopicPatch is a partial update. Nil fields are left unchanged.
type TopicPatch struct {
	Title        *string
	MaterialLink *string
	Notes        *string
	Status       *TopicStatus
}

// NewTopic creates a validated topic at the given order index. An empty
// status defaults to NOT_STARTED.
func NewTopic(planID uuid.UUID, orderIndex int, fields TopicFields) (*Topic, error) {
	status := fields.Status
	if status == "" {
		status = TopicStatusNotStarted
	}

	now := time.Now().UTC()
	topic := &Topic{
		ID:           uuid.New(),
		PlanID:       planID,
		Title:        strings.TrimSpace(fields.Title),
		MaterialLink: strings.TrimSpace(fields.MaterialLink),
		Notes:        fields.Notes,
		Status:       status,
		OrderIndex:   orderIndex,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := topic.Validate(); err != nil {
		return nil, err
	}

	return topic, nil
}

// Validate checks if the Topic has valid data.
func (t *Topic) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTopicID
	}
	if t.PlanID == uuid.Nil {
		return ErrEmptyTopicPlanID
	}
	if t.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyTopicTitle)
	}
	if len([]rune(t.Title)) > MaxTopicTitleLength {
		return NewValidationError("title", "is too long", ErrTopicTitleTooLong)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "is not a known value", ErrInvalidTopicStatus)
	}
	if t.OrderIndex < 0 {
		return NewValidationError("order_index", "cannot be negative", ErrInvalidOrderIndex)
	}
	if err := linkValidator.Var(t.MaterialLink, "omitempty,http_url"); err != nil {
		return NewValidationError("material_link", "must be an http or https URL", ErrInvalidMaterialURL)
	}
	return nil
}

// Apply updates the topic in place and validates the result. On error the
// topic is left unchanged.
func (t *Topic) Apply(patch TopicPatch, now time.Time) error {
	next := *t
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.MaterialLink != nil {
		next.MaterialLink = strings.TrimSpace(*patch.MaterialLink)
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}

	if err := next.Validate(); err != nil {
		return err
	}

	next.UpdatedAt = now
	*t = next
	return nil
}

// SetStatus changes the checklist status. Transitions are unrestricted.
func (t *Topic) SetStatus(status TopicStatus, now time.Time) error {
	return t.Apply(TopicPatch{Status: &status}, now)
}
