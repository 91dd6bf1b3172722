package api

import (
	"net/http"

	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/service"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// Discover returns the handler for GET /api/discover/{mode}. Discovery is
// open to anonymous callers and lists PUBLIC plans only.
func (h *PlanHandler) Discover(mode store.DiscoverMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := queryInt(r, "page", 0)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		size, err := queryInt(r, "size", 0)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}

		result, err := h.plans.Discover(r.Context(), service.DiscoverRequest{
			Mode:  mode,
			Query: r.URL.Query().Get("query"),
			Page:  page,
			Size:  size,
		})
		if err != nil {
			HandleAPIError(w, r, err, "Failed to discover plans")
			return
		}

		shared.RespondWithJSON(w, r, http.StatusOK, DiscoverResponse{
			Mode:  string(result.Mode),
			Query: result.Query,
			Page:  result.Page,
			Size:  result.Size,
			Plans: plansToResponse(result.Plans),
		})
	}
}
