package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/service"
)

// NotificationHandler serves the authenticated user's inbox.
type NotificationHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(users service.UserService, logger *slog.Logger) *NotificationHandler {
	if users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("users cannot be nil for NotificationHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		users:  users,
		logger: logger.With(slog.String("component", "notification_handler")),
	}
}

// List handles GET /api/notifications?limit=n, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := h.users.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, notificationsToResponse(list))
}
