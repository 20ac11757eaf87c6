package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuzukisa/pixhive/internal/config"
)

func TestSetupLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: level})
		require.NoError(t, err, "level %s", level)
		require.NotNil(t, logger)
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	_, err := Setup(config.ServerConfig{Port: 8080, LogLevel: "verbose"})
	assert.Error(t, err)
}

func TestFromContextFallback(t *testing.T) {
	t.Parallel()
	got := FromContext(context.Background())
	assert.NotNil(t, got)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "test")
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
