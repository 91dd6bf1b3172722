package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visibility controls who may see and enroll in a plan.
type Visibility string

// Visibility levels. PRIVATE plans are visible to the owner only, SHARED plans
// are reachable by ID, PUBLIC plans are additionally listed by discovery.
const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityShared  Visibility = "SHARED"
	VisibilityPublic  Visibility = "PUBLIC"
)

// Plan limits
const (
	MaxPlanTitleLength       = 200
	MaxPlanDescriptionLength = 5000
	MaxTagLength             = 50
	MaxTags                  = 20
)

// Plan validation errors
var (
	ErrEmptyPlanID          = fmt.Errorf("%w: plan ID cannot be empty", ErrValidation)
	ErrEmptyPlanOwner       = fmt.Errorf("%w: plan owner cannot be empty", ErrValidation)
	ErrEmptyPlanTitle       = fmt.Errorf("%w: plan title cannot be empty", ErrValidation)
	ErrPlanTitleTooLong     = fmt.Errorf("%w: plan title is too long", ErrValidation)
	ErrPlanDescriptionLong  = fmt.Errorf("%w: plan description is too long", ErrValidation)
	ErrInvalidVisibility    = fmt.Errorf("%w: invalid visibility", ErrValidation)
	ErrInvalidPlanDateRange = fmt.Errorf("%w: end date precedes start date", ErrValidation)
	ErrInvalidTag           = fmt.Errorf("%w: invalid tag", ErrValidation)
	ErrTooManyTags          = fmt.Errorf("%w: too many tags", ErrValidation)
)

// ParseVisibility converts a case-insensitive name into a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", ErrInvalidVisibility
	}
	return v, nil
}

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic:
		return true
	}
	return false
}

// Plan is a user-authored curriculum. It exclusively owns its topics and
// enrollments; deleting a plan deletes both.
type Plan struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Tags        []string   `json:"tags"`
	ViewCount   int64      `json:"view_count"`

	// EnrollmentCount is derived by counting ledger rows when the plan is read.
	// It is never persisted.
	EnrollmentCount int `json:"enrollment_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanFields holds the author-supplied attributes of a new plan.
type PlanFields struct {
	Title       string
	Description string
	Visibility  Visibility
	StartDate   *time.Time
	EndDate     *time.Time
	Tags        []string
}

// PlanPatch is a partial update. Nil fields are left unchanged. Visibility is
// deliberately absent: it changes only through Plan.SetVisibility.
type PlanPatch struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Tags        []string
	ReplaceTags bool
}

// NewPlan creates a validated plan owned by ownerID. An empty visibility
// defaults to PRIVATE.
func NewPlan(ownerID uuid.UUID, fields PlanFields) (*Plan, error) {
	visibility := fields.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}

	now := time.Now().UTC()
	plan := &Plan{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(fields.Title),
		Description: strings.TrimSpace(fields.Description),
		Visibility:  visibility,
		StartDate:   fields.StartDate,
		EndDate:     fields.EndDate,
		Tags:        NormalizeTags(fields.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

// Validate checks if the Plan has valid data.
func (p *Plan) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPlanID
	}
	if p.OwnerID == uuid.Nil {
		return ErrEmptyPlanOwner
	}
	if p.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyPlanTitle)
	}
	if len([]rune(p.Title)) > MaxPlanTitleLength {
		return NewValidationError("title", "is too long", ErrPlanTitleTooLong)
	}
	if len([]rune(p.Description)) > MaxPlanDescriptionLength {
		return NewValidationError("description", "is too long", ErrPlanDescriptionLong)
	}
	if !p.Visibility.Valid() {
		return NewValidationError("visibility", "is not a known value", ErrInvalidVisibility)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return NewValidationError("end_date", "must not precede start_date", ErrInvalidPlanDateRange)
	}
	if len(p.Tags) > MaxTags {
		return NewValidationError("tags", "has too many entries", ErrTooManyTags)
	}
	for _, tag := range p.Tags {
		if tag == "" || len([]rune(tag)) > MaxTagLength {
			return NewValidationError("tags", fmt.Sprintf("contains invalid tag %q", tag), ErrInvalidTag)
		}
	}
	return nil
}

// Apply updates the plan in place and validates the result. On error the
// plan is left unchanged.
func (p *Plan) Apply(patch PlanPatch, now time.Time) error {
	next := *p
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.StartDate != nil {
		next.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		next.EndDate = patch.EndDate
	}
	if patch.ReplaceTags {
		next.Tags = NormalizeTags(patch.Tags)
	}

	if err := next.Validate(); err != nil {
		return err
	}

	next.UpdatedAt = now
	*p = next
	return nil
}

// SetVisibility moves the plan to v. Every transition between the three
// levels is legal.
func (p *Plan) SetVisibility(v Visibility, now time.Time) error {
	if !v.Valid() {
		return NewValidationError("visibility", "is not a known value", ErrInvalidVisibility)
	}
	p.Visibility = v
	p.UpdatedAt = now
	return nil
}

// HasTag reports whether the plan carries tag, compared case-insensitively.
func (p *Plan) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags lowercases and trims tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
