package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/service"
)

// PlanHandler handles plan, topic and enrollment requests. All of them go
// through the plan service.
type PlanHandler struct {
	plans  service.PlanService
	logger *slog.Logger
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(plans service.PlanService, logger *slog.Logger) *PlanHandler {
	if plans == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("plans cannot be nil for PlanHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanHandler{
		plans:  plans,
		logger: logger.With(slog.String("component", "plan_handler")),
	}
}

func (h *PlanHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// CreatePlan handles POST /api/plans.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.log(r))
	if !ok {
		return
	}

	var req CreatePlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.plans.CreatePlan(r.Context(), userID, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create plan")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, planViewToResponse(view))
}

// GetPlan handles GET /api/plans/{id}.
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	view, err := h.plans.GetPlan(r.Context(), userID, planID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get plan")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, planViewToResponse(view))
}

// UpdatePlan handles PUT /api/plans/{id}.
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.plans.UpdatePlan(r.Context(), userID, planID, req.patch())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update plan")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, planViewToResponse(view))
}

// SetVisibility handles PATCH /api/plans/{id}/visibility.
func (h *PlanHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req VisibilityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	visibility, err := domain.ParseVisibility(req.Visibility)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.plans.SetVisibility(r.Context(), userID, planID, visibility)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to change visibility")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, planViewToResponse(view))
}

// DeletePlan handles DELETE /api/plans/{id}.
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	if err := h.plans.DeletePlan(r.Context(), userID, planID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete plan")
		return
	}
	shared.RespondNoContent(w)
}

// ListMyPlans handles GET /api/plans.
func (h *PlanHandler) ListMyPlans(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.log(r))
	if !ok {
		return
	}

	plans, err := h.plans.ListOwnPlans(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list plans")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, plansToResponse(plans))
}

// PlanProgress handles GET /api/plans/{id}/progress.
func (h *PlanHandler) PlanProgress(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	view, err := h.plans.PlanProgress(r.Context(), userID, planID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PlanProgressResponse{
		PlanID:    view.PlanID,
		Owner:     view.Owner,
		Aggregate: view.Aggregate,
	})
}

// ListParticipants handles GET /api/plans/{id}/enrollments.
func (h *PlanHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	participants, err := h.plans.ListParticipants(r.Context(), userID, planID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list participants")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, participantsToResponse(participants))
}

// Enroll handles POST /api/plans/{id}/enroll.
func (h *PlanHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	view, err := h.plans.Enroll(r.Context(), userID, planID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enroll")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, enrollmentToResponse(view))
}
