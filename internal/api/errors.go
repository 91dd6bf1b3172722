package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/service"
	"github.com/phrazzld/learnplan-api/internal/service/auth"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes by their
// kind. Unclassified errors are internal server errors.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized

	// Malformed requests
	case isRequestFormatError(err):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// safeMessages maps sentinels to the text returned to clients. Order
// matters: the first match wins.
var safeMessages = []struct {
	err error
	msg string
}{
	{auth.ErrExpiredToken, "Token expired"},
	{auth.ErrInvalidToken, "Invalid token"},
	{auth.ErrTokenNotYetValid, "Invalid token"},
	{auth.ErrWrongTokenType, "Invalid token"},
	{auth.ErrMissingToken, "Authorization header required"},
	{service.ErrInvalidCredentials, "Invalid credentials"},
	{service.ErrUnauthenticated, "Authentication required"},
	{service.ErrPlanNotFound, "Plan not found"},
	{service.ErrTopicNotFound, "Topic not found"},
	{service.ErrEnrollmentNotFound, "Enrollment not found"},
	{service.ErrUserNotFound, "User not found"},
	{service.ErrNotOwned, "You do not own this plan"},
	{service.ErrOwnerCannotEnroll, "Owners cannot enroll in their own plan"},
	{service.ErrNotLearner, "Only the learner can record progress"},
	{service.ErrNotEnrollmentParty, "You are not a participant of this enrollment"},
	{service.ErrAlreadyEnrolled, "Already enrolled in this plan"},
	{service.ErrTopicOrderConflict, "Topic order changed concurrently, please retry"},
	{service.ErrEmailExists, "Email already exists"},
	{service.ErrUsernameExists, "Username already taken"},
	{service.ErrEmptySearchQuery, "Search query is required"},
	{service.ErrInvalidPage, "Page is out of range"},
	{service.ErrInvalidPageSize, "Page size out of range"},
	{service.ErrInvalidDiscovery, "Unknown discovery mode"},
}

// GetSafeErrorMessage returns a user-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	for _, m := range safeMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}

	if isRequestFormatError(err) {
		return "Invalid request format"
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return SanitizeValidationError(err)
	}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		if vErr.Field == "" {
			return capitalize(vErr.Message)
		}
		return fmt.Sprintf("Invalid %s: %s", vErr.Field, vErr.Message)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		if msg := domainValidationMessage(err); msg != "" {
			return msg
		}
		return "Validation error"
	case errors.Is(err, domain.ErrUnauthorized):
		return "You are not allowed to perform this action"
	case errors.Is(err, domain.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, domain.ErrConflict):
		return "Request conflicts with existing state"
	}
	return "An unexpected error occurred"
}

// SanitizeValidationError turns struct validation failures into a message
// naming the first invalid field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}
	fe := fieldErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url", "http_url":
		return "invalid URL"
	default:
		return "validation failed"
	}
}

// domainValidationMessage finds the domain sentinel in err's chain, the
// error that directly wraps ErrValidation, and returns its description.
func domainValidationMessage(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.Unwrap(e) == domain.ErrValidation {
			msg := strings.TrimPrefix(e.Error(), domain.ErrValidation.Error()+": ")
			return capitalize(msg)
		}
	}
	return ""
}

func isRequestFormatError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, shared.ErrEmptyBody) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
