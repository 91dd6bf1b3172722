package api

import (
	"net/http"

	"github.com/phrazzld/learnplan-api/internal/api/shared"
)

// ListMyEnrollments handles GET /api/enrollments.
func (h *PlanHandler) ListMyEnrollments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.log(r))
	if !ok {
		return
	}

	views, err := h.plans.ListMyEnrollments(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list enrollments")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, enrollmentsToResponse(views))
}

// GetEnrollment handles GET /api/enrollments/{id}.
func (h *PlanHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	userID, enrollmentID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	view, err := h.plans.GetEnrollment(r.Context(), userID, enrollmentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get enrollment")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, enrollmentToResponse(view))
}

// Unenroll handles DELETE /api/enrollments/{id}. Learners leave, owners
// remove learners.
func (h *PlanHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	userID, enrollmentID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	if err := h.plans.Unenroll(r.Context(), userID, enrollmentID); err != nil {
		HandleAPIError(w, r, err, "Failed to unenroll")
		return
	}
	shared.RespondNoContent(w)
}

// MarkTopic handles PUT /api/enrollments/{id}/topics/{topicId}.
func (h *PlanHandler) MarkTopic(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, enrollmentID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	topicID, err := getPathUUID(r, "topicId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req MarkTopicRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.plans.MarkTopicComplete(r.Context(), userID, enrollmentID, topicID, *req.Completed)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, enrollmentToResponse(view))
}
