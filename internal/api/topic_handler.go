package api

import (
	"net/http"

	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/domain"
)

// ListTopics handles GET /api/plans/{id}/topics.
func (h *PlanHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	topics, err := h.plans.ListTopics(r.Context(), userID, planID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list topics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topicsToResponse(topics))
}

// GetTopic handles GET /api/topics/{id}.
func (h *PlanHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	topic, err := h.plans.GetTopic(r.Context(), userID, topicID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get topic")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(topic))
}

// AddTopic handles POST /api/plans/{id}/topics.
func (h *PlanHandler) AddTopic(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req TopicRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	topic, err := h.plans.AddTopic(r.Context(), userID, planID, req.fields())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add topic")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, topicToResponse(topic))
}

// UpdateTopic handles PUT /api/topics/{id}.
func (h *PlanHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req UpdateTopicRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	topic, err := h.plans.UpdateTopic(r.Context(), userID, topicID, domain.TopicPatch{
		Title:        req.Title,
		MaterialLink: req.MaterialLink,
		Notes:        req.Notes,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update topic")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(topic))
}

// SetTopicStatus handles PATCH /api/topics/{id}/status.
func (h *PlanHandler) SetTopicStatus(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req TopicStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	status, err := domain.ParseTopicStatus(req.Status)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	topic, err := h.plans.SetTopicStatus(r.Context(), userID, topicID, status)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update topic status")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topicToResponse(topic))
}

// DeleteTopic handles DELETE /api/topics/{id}.
func (h *PlanHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := handleUserIDAndPathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	if err := h.plans.DeleteTopic(r.Context(), userID, topicID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete topic")
		return
	}
	shared.RespondNoContent(w)
}
