package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestJWTService(t *testing.T, secret string, lifetime time.Duration, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(secret, lifetime, now)
	require.NoError(t, err)
	return svc
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenLifetime := 60 * time.Minute
	userID := uuid.New()
	svc := newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime))

	token, expiresAt, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, fixedTime.Add(tokenLifetime), expiresAt)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, tokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(tokenLifetime).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokenLifetime := 60 * time.Minute
	wrongSecret := "wrong-secret-that-is-long-enough-for-testing"
	userID := uuid.New()

	sign := func(t *testing.T, claims jwtCustomClaims, method jwt.SigningMethod, key interface{}) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime))
				token, _, err := svc.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return svc, token
			},
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime))
				token, _, err := genSvc.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				// past the lifetime plus the clock skew allowance
				later := fixedTime.Add(tokenLifetime + 5*time.Minute)
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(later)), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "within clock skew",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime))
				token, _, err := genSvc.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				later := fixedTime.Add(tokenLifetime + time.Minute)
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(later)), token
			},
		},
		{
			name: "wrong signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newTestJWTService(t, wrongSecret, tokenLifetime, fixedClock(fixedTime))
				token, _, err := genSvc.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "not yet valid",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token := sign(t, jwtCustomClaims{
					UserID:    userID,
					TokenType: tokenTypeAccess,
					RegisteredClaims: jwt.RegisteredClaims{
						NotBefore: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(2 * time.Hour)),
					},
				}, jwt.SigningMethodHS256, []byte(testSecret))
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), token
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong token type",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token := sign(t, jwtCustomClaims{
					UserID:    userID,
					TokenType: "refresh",
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS256, []byte(testSecret))
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), token
			},
			wantErr: ErrWrongTokenType,
		},
		{
			name: "missing user id",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token := sign(t, jwtCustomClaims{
					TokenType: tokenTypeAccess,
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS256, []byte(testSecret))
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unexpected signing method",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token := sign(t, jwtCustomClaims{
					UserID:    userID,
					TokenType: tokenTypeAccess,
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}, jwt.SigningMethodHS512, []byte(testSecret))
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), "not.a.jwt"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "empty token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestJWTService(t, testSecret, tokenLifetime, fixedClock(fixedTime)), ""
			},
			wantErr: ErrMissingToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setupFunc(t)

			claims, err := svc.ValidateToken(context.Background(), token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 15})
	require.NoError(t, err)
	require.NotNil(t, svc)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 15})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err)
}
