package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), "level %q", in)
	}
}

func TestCLIHandler_WritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.With("case", "abc").Info("scored", "score", 55)

	out := buf.String()
	assert.Contains(t, out, "scored: case=abc score=55")
	assert.NotContains(t, out, colorGreen, "buffers are not terminals")
}

func TestCLIHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelWarn))

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestCLIHandler_GroupPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo)).WithGroup("kb")

	logger.Info("indexed")

	assert.Contains(t, buf.String(), "[kb] indexed")
}

func TestNewServerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewServerLogger(&buf, "debug")
	require.NotNil(t, logger)

	logger.Debug("request", "path", "/api/health")

	assert.Contains(t, buf.String(), "path=/api/health")
}
