package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/mocks"
	"github.com/phrazzld/learnplan-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	tests := []struct {
		name        string
		header      string
		validateErr error
		wantStatus  int
		wantError   string
		wantCalled  bool
	}{
		{
			name:       "valid token",
			header:     "Bearer good-token",
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "lowercase scheme",
			header:     "bearer good-token",
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authorization header required",
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid authorization format",
		},
		{
			name:       "empty token",
			header:     "Bearer   ",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid authorization format",
		},
		{
			name:        "expired token",
			header:      "Bearer old-token",
			validateErr: auth.ErrExpiredToken,
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Token expired",
		},
		{
			name:        "invalid token",
			header:      "Bearer forged",
			validateErr: auth.ErrInvalidToken,
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Invalid token",
		},
		{
			name:        "wrong token type",
			header:      "Bearer refresh",
			validateErr: auth.ErrWrongTokenType,
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Invalid token",
		},
		{
			name:        "unexpected validation failure",
			header:      "Bearer good-token",
			validateErr: errors.New("keystore unavailable"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Authentication error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			jwtService := &mocks.MockJWTService{
				Claims:      &auth.Claims{UserID: userID, TokenType: "access", ID: "jti"},
				ValidateErr: tt.validateErr,
			}
			mw := NewAuthMiddleware(jwtService)

			var called bool
			var gotUser uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUser, _ = shared.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, []string{"good-token"}, jwtService.ValidatedTokens)
				return
			}
			var body shared.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestAuthenticate_PassesRequestContext(t *testing.T) {
	t.Parallel()
	type key struct{}
	var seen interface{}
	jwtService := &mocks.MockJWTService{
		ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
			seen = ctx.Value(key{})
			return &auth.Claims{UserID: uuid.New()}, nil
		},
	}
	mw := NewAuthMiddleware(jwtService)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), key{}, "marker"))
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	mw.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	assert.Equal(t, "marker", seen)
}

func TestNewAuthMiddleware_PanicsOnNil(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewAuthMiddleware(nil) })
}
