package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tc := range tests {
		got, ok := logger.ParseLevel(tc.name)
		assert.Equal(t, tc.want, got, tc.name)
		assert.Equal(t, tc.wantOK, ok, tc.name)
	}
}

func TestSetupSetsDefault(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	l, err := logger.Setup(config.ServerConfig{LogLevel: "warn"})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Same(t, l, slog.Default())
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))
}

func TestFromContextOrDefault(t *testing.T) {
	fallback := slog.Default()
	custom, _ := logger.NewTestLogger(t)

	//nolint:staticcheck // nil context is part of the contract
	assert.Same(t, fallback, logger.FromContextOrDefault(nil, fallback))
	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))

	ctx := logger.WithLogger(context.Background(), custom)
	assert.Same(t, custom, logger.FromContextOrDefault(ctx, fallback))
	assert.Same(t, custom, logger.FromContext(ctx))
}

func TestWithLoggerNilPanics(t *testing.T) {
	assert.Panics(t, func() {
		logger.WithLogger(context.Background(), nil)
	})
}

func TestNewTestLoggerCapturesJSON(t *testing.T) {
	l, buf := logger.NewTestLogger(t)
	l.Debug("plan created", slog.String("plan_id", "abc"))

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plan created", entries[0]["msg"])
	assert.Equal(t, "abc", entries[0]["plan_id"])
}
