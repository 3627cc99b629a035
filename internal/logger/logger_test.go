package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLevelParsing(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{Level: "debug"}.slogLevel())
	assert.Equal(t, slog.LevelWarn, Config{Level: "WARN"}.slogLevel())
	assert.Equal(t, slog.LevelWarn, Config{Level: "warning"}.slogLevel())
	assert.Equal(t, slog.LevelError, Config{Level: "error"}.slogLevel())
	assert.Equal(t, slog.LevelInfo, Config{}.slogLevel())
	assert.Equal(t, slog.LevelInfo, Config{Level: "garbage"}.slogLevel())
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := Config{Level: "debug", Format: "json", File: path}.New()

	log.Info("hello", slog.String("component", "test"))
	log.Debug("visible at debug level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"component":"test"`)
	assert.Contains(t, out, "visible at debug level")
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := Config{Level: "warn", File: path}.New()

	log.Info("dropped")
	log.Warn("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestColorTextHandlerPrefixesLevel(t *testing.T) {
	var sb strings.Builder
	h := NewColorTextHandler(&sb, &slog.HandlerOptions{})
	log := slog.New(h)

	log.Info("tinted")
	require.NoError(t, h.Handle(context.Background(), slog.Record{Level: slog.LevelError, Message: "boom"}))

	out := sb.String()
	assert.Contains(t, out, "\033[32m")
	assert.Contains(t, out, "\033[31m")
	assert.Contains(t, out, "tinted")
}
