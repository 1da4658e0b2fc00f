package logger

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"edusync/internal/app/server/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		env           string
		expectedLevel slog.Level
	}{
		{
			name:          "local environment",
			env:           config.EnvLocal,
			expectedLevel: slog.LevelDebug,
		},
		{
			name:          "dev environment",
			env:           config.EnvDev,
			expectedLevel: slog.LevelDebug,
		},
		{
			name:          "prod environment",
			env:           config.EnvProd,
			expectedLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.env)
			require.NotNil(t, logger)
			ctx := context.Background()
			assert.Equal(t, tt.expectedLevel <= slog.LevelDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestSetupPrettySlog(t *testing.T) {
	logger := setupPrettySlog()
	require.NotNil(t, logger)

	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()

	// Prod - только INFO и выше
	prodLogger := New(config.EnvProd)
	assert.False(t, prodLogger.Enabled(ctx, slog.LevelDebug))
	assert.True(t, prodLogger.Enabled(ctx, slog.LevelInfo))

	// Dev - DEBUG и выше
	devLogger := New(config.EnvDev)
	assert.True(t, devLogger.Enabled(ctx, slog.LevelDebug))

	// Неизвестное окружение ведет себя как prod
	unknown := New("staging")
	assert.False(t, unknown.Enabled(ctx, slog.LevelDebug))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyHandler{w: &buf, mu: &sync.Mutex{}, level: slog.LevelDebug}
	log := slog.New(h).With(slog.String("component", "downsync")).WithGroup("snapshot")

	log.Warn("lesson skipped", slog.Int64("lesson_id", 9001), slog.Any("error", errors.New("no parent")))

	out := buf.String()
	assert.Contains(t, out, "lesson skipped")
	assert.Contains(t, out, `"component": "downsync"`)
	assert.Contains(t, out, `"snapshot.lesson_id": 9001`)
	assert.Contains(t, out, `"snapshot.error": "no parent"`)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	log := NewWithFile(config.EnvProd, path)
	require.NotNil(t, log)
	log.Info("written to file")
	assert.FileExists(t, path)
}
