package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/domain/progress"
	"github.com/phrazzld/learnplan-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=40"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// TopicRequest describes a new topic.
type TopicRequest struct {
	Title        string `json:"title"         validate:"required,max=200"`
	MaterialLink string `json:"material_link" validate:"omitempty,http_url"`
	Notes        string `json:"notes"`
	Status       string `json:"status"        validate:"omitempty,oneof=NOT_STARTED IN_PROGRESS COMPLETED"`
}

func (t TopicRequest) fields() domain.TopicFields {
	return domain.TopicFields{
		Title:        t.Title,
		MaterialLink: t.MaterialLink,
		Notes:        t.Notes,
		Status:       domain.TopicStatus(t.Status),
	}
}

// CreatePlanRequest defines the payload for creating a plan, optionally
// with its initial topics.
type CreatePlanRequest struct {
	Title       string         `json:"title"       validate:"required,max=200"`
	Description string         `json:"description" validate:"max=5000"`
	Visibility  string         `json:"visibility"  validate:"omitempty,oneof=PRIVATE SHARED PUBLIC"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	Tags        []string       `json:"tags"        validate:"max=20,dive,max=50"`
	Topics      []TopicRequest `json:"topics"      validate:"dive"`
}

func (req CreatePlanRequest) input() service.CreatePlanInput {
	in := service.CreatePlanInput{
		Fields: domain.PlanFields{
			Title:       req.Title,
			Description: req.Description,
			Visibility:  domain.Visibility(req.Visibility),
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Tags:        req.Tags,
		},
	}
	for _, t := range req.Topics {
		in.Topics = append(in.Topics, t.fields())
	}
	return in
}

// UpdatePlanRequest is a partial update. Omitted fields keep their value;
// a present tags array replaces the tags.
type UpdatePlanRequest struct {
	Title       *string    `json:"title"       validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Tags        *[]string  `json:"tags"`
}

func (req UpdatePlanRequest) patch() domain.PlanPatch {
	p := domain.PlanPatch{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if req.Tags != nil {
		p.Tags = *req.Tags
		p.ReplaceTags = true
	}
	return p
}

// VisibilityRequest changes a plan's visibility.
type VisibilityRequest struct {
	Visibility string `json:"visibility" validate:"required"`
}

// UpdateTopicRequest is a partial topic update.
type UpdateTopicRequest struct {
	Title        *string `json:"title"         validate:"omitempty,max=200"`
	MaterialLink *string `json:"material_link"`
	Notes        *string `json:"notes"`
}

// TopicStatusRequest changes the owner's checklist status of a topic.
type TopicStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// MarkTopicRequest records a learner's completion of a topic.
type MarkTopicRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// PlanResponse is the summary form of a plan.
type PlanResponse struct {
	ID              uuid.UUID         `json:"id"`
	OwnerID         uuid.UUID         `json:"owner_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Visibility      domain.Visibility `json:"visibility"`
	StartDate       *time.Time        `json:"start_date,omitempty"`
	EndDate         *time.Time        `json:"end_date,omitempty"`
	Tags            []string          `json:"tags"`
	ViewCount       int64             `json:"view_count"`
	EnrollmentCount int               `json:"enrollment_count"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TopicResponse is a topic with the owner's checklist status.
type TopicResponse struct {
	ID           uuid.UUID          `json:"id"`
	PlanID       uuid.UUID          `json:"plan_id"`
	Title        string             `json:"title"`
	MaterialLink string             `json:"material_link,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	Status       domain.TopicStatus `json:"status"`
	OrderIndex   int                `json:"order_index"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// EnrollmentResponse is an enrollment with the learner's progress.
type EnrollmentResponse struct {
	ID                uuid.UUID               `json:"id"`
	PlanID            uuid.UUID               `json:"plan_id"`
	PlanTitle         string                  `json:"plan_title"`
	LearnerID         uuid.UUID               `json:"learner_id"`
	CompletedTopicIDs []uuid.UUID             `json:"completed_topic_ids"`
	Status            domain.EnrollmentStatus `json:"status"`
	Progress          progress.Snapshot       `json:"progress"`
	EnrolledAt        time.Time               `json:"enrolled_at"`
	LastActivityAt    time.Time               `json:"last_activity_at"`
}

// ParticipantResponse describes one learner of a plan.
type ParticipantResponse struct {
	EnrollmentID   uuid.UUID               `json:"enrollment_id"`
	LearnerID      uuid.UUID               `json:"learner_id"`
	Username       string                  `json:"username"`
	Status         domain.EnrollmentStatus `json:"status"`
	Progress       progress.Snapshot       `json:"progress"`
	EnrolledAt     time.Time               `json:"enrolled_at"`
	LastActivityAt time.Time               `json:"last_activity_at"`
}

// PlanDetailResponse is a plan as seen by the requesting user.
type PlanDetailResponse struct {
	PlanResponse
	Topics       []TopicResponse       `json:"topics"`
	Progress     progress.Snapshot     `json:"progress"`
	IsOwner      bool                  `json:"is_owner"`
	IsEnrolled   bool                  `json:"is_enrolled"`
	Enrollment   *EnrollmentResponse   `json:"enrollment,omitempty"`
	Participants []ParticipantResponse `json:"participants"`
}

// PlanProgressResponse is the owner's progress overview.
type PlanProgressResponse struct {
	PlanID    uuid.UUID          `json:"plan_id"`
	Owner     progress.Snapshot  `json:"owner"`
	Aggregate progress.Aggregate `json:"aggregate"`
}

// DiscoverResponse is one page of discoverable plans.
type DiscoverResponse struct {
	Mode  string         `json:"mode"`
	Query string         `json:"query,omitempty"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Plans []PlanResponse `json:"plans"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        uuid.UUID               `json:"id"`
	ActorID   uuid.UUID               `json:"actor_id"`
	Type      domain.NotificationType `json:"type"`
	PlanID    uuid.UUID               `json:"plan_id"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"created_at"`
}

func planToResponse(p *domain.Plan) PlanResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PlanResponse{
		ID:              p.ID,
		OwnerID:         p.OwnerID,
		Title:           p.Title,
		Description:     p.Description,
		Visibility:      p.Visibility,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Tags:            tags,
		ViewCount:       p.ViewCount,
		EnrollmentCount: p.EnrollmentCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func plansToResponse(plans []*domain.Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planToResponse(p))
	}
	return out
}

func topicToResponse(t *domain.Topic) TopicResponse {
	return TopicResponse{
		ID:           t.ID,
		PlanID:       t.PlanID,
		Title:        t.Title,
		MaterialLink: t.MaterialLink,
		Notes:        t.Notes,
		Status:       t.Status,
		OrderIndex:   t.OrderIndex,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func topicsToResponse(topics []*domain.Topic) []TopicResponse {
	out := make([]TopicResponse, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicToResponse(t))
	}
	return out
}

func enrollmentToResponse(v *service.EnrollmentView) EnrollmentResponse {
	completed := v.Enrollment.CompletedTopicIDs
	if completed == nil {
		completed = []uuid.UUID{}
	}
	return EnrollmentResponse{
		ID:                v.Enrollment.ID,
		PlanID:            v.Enrollment.PlanID,
		PlanTitle:         v.PlanTitle,
		LearnerID:         v.Enrollment.LearnerID,
		CompletedTopicIDs: completed,
		Status:            v.Status,
		Progress:          v.Progress,
		EnrolledAt:        v.Enrollment.CreatedAt,
		LastActivityAt:    v.Enrollment.LastActivityAt,
	}
}

func enrollmentsToResponse(views []*service.EnrollmentView) []EnrollmentResponse {
	out := make([]EnrollmentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, enrollmentToResponse(v))
	}
	return out
}

func participantsToResponse(ps []service.ParticipantView) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ParticipantResponse{
			EnrollmentID:   p.EnrollmentID,
			LearnerID:      p.LearnerID,
			Username:       p.Username,
			Status:         p.Status,
			Progress:       p.Progress,
			EnrolledAt:     p.EnrolledAt,
			LastActivityAt: p.LastActivityAt,
		})
	}
	return out
}

func planViewToResponse(v *service.PlanView) PlanDetailResponse {
	resp := PlanDetailResponse{
		PlanResponse: planToResponse(v.Plan),
		Topics:       topicsToResponse(v.Topics),
		Progress:     v.Progress,
		IsOwner:      v.IsOwner,
		IsEnrolled:   v.IsEnrolled(),
		Participants: participantsToResponse(v.Participants),
	}
	if v.Enrollment != nil {
		e := enrollmentToResponse(v.Enrollment)
		resp.Enrollment = &e
	}
	return resp
}

func notificationsToResponse(list []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			ActorID:   n.ActorID,
			Type:      n.Type,
			PlanID:    n.PlanID,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
