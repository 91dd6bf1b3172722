package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracedRequest(t *testing.T) (*http.Request, *logger.TestLogBuffer) {
	t.Helper()
	log, buf := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	ctx := SetTraceID(req.Context())
	ctx = logger.WithLogger(ctx, log)
	return req.WithContext(ctx), buf
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()
	req, logs := newTracedRequest(t)
	rec := httptest.NewRecorder()

	cause := errors.New("dial postgres://app:hunter2@db:5432/learn failed")
	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError, "Failed to list plans", cause)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Failed to list plans", body["error"])
	assert.Equal(t, GetTraceID(req.Context()), body["trace_id"])
	assert.NotContains(t, body, "Code")

	entries, err := logs.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.NotContains(t, entries[0]["error"], "hunter2")
}

func TestRespondWithErrorAndLog_LogLevels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		opts   []ResponseOption
		want   string
	}{
		{"client error", http.StatusNotFound, nil, "DEBUG"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
		{"rate limited", http.StatusTooManyRequests, nil, "WARN"},
		{"server error", http.StatusBadGateway, nil, "ERROR"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, logs := newTracedRequest(t)
			RespondWithErrorAndLog(httptest.NewRecorder(), req, tt.status, "msg", nil, tt.opts...)

			entries, err := logs.Entries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0]["level"])
		})
	}
}

func TestRespondNoContent(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	RespondNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
