package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/service"
	"github.com/phrazzld/learnplan-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest},
		{"syntax error", &json.SyntaxError{}, http.StatusBadRequest},
		{"domain validation", domain.ErrInvalidVisibility, http.StatusBadRequest},
		{"field validation", domain.NewValidationError("page", "must be an integer", nil), http.StatusBadRequest},
		{"not owner", service.NewPlanServiceError("update plan", "failed", service.ErrNotOwned), http.StatusForbidden},
		{"owner enroll", service.ErrOwnerCannotEnroll, http.StatusForbidden},
		{"plan not found", fmt.Errorf("get: %w", service.ErrPlanNotFound), http.StatusNotFound},
		{"already enrolled", service.ErrAlreadyEnrolled, http.StatusConflict},
		{"email exists", service.ErrEmailExists, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"wrapped sentinel", service.NewPlanServiceError("enroll", "failed to enroll", service.ErrAlreadyEnrolled), "Already enrolled in this plan"},
		{"expired", auth.ErrExpiredToken, "Token expired"},
		{"wrong type", auth.ErrWrongTokenType, "Invalid token"},
		{"search", service.ErrEmptySearchQuery, "Search query is required"},
		{"field error", domain.NewValidationError("limit", "must be between 1 and 100", nil), "Invalid limit: must be between 1 and 100"},
		{"message only", domain.NewValidationError("", "dates are reversed", nil), "Dates are reversed"},
		{"domain sentinel", fmt.Errorf("create plan: %w", domain.ErrInvalidPlanDateRange), "End date precedes start date"},
		{"bare validation", domain.ErrValidation, "Validation error"},
		{"bare unauthorized", domain.ErrUnauthorized, "You are not allowed to perform this action"},
		{"request format", shared.ErrEmptyBody, "Invalid request format"},
		{"internal", errors.New("pq: relation \"plans\" does not exist"), "An unexpected error occurred"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()
	err := shared.ValidateRequest(&CreatePlanRequest{Visibility: "SECRET"})
	require.Error(t, err)
	assert.Equal(t, "Invalid title: required field", SanitizeValidationError(err))

	err = shared.ValidateRequest(&CreatePlanRequest{Title: "t", Visibility: "SECRET"})
	require.Error(t, err)
	assert.Equal(t, "Invalid visibility: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
