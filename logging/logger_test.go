package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger_CreatesFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	require.NoError(t, err)

	logger.Info("screenshot saved", "file", "a.png")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	entries := decodeLines(t, string(content))
	require.Len(t, entries, 1)
	assert.Equal(t, "screenshot saved", entries[0]["msg"])
	assert.Equal(t, "a.png", entries[0]["file"])
}

func TestNewLogger_StderrWhenDirEmpty(t *testing.T) {
	logger, err := NewLogger("", LevelInfo)
	require.NoError(t, err)
	assert.Nil(t, logger.file)
	assert.NoError(t, logger.Close())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "warn")

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")
	logger.Error("shown too")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "ERROR", entries[1]["level"])
}

func TestLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "loud")

	logger.Debug("hidden")
	logger.Info("shown")

	assert.Len(t, decodeLines(t, buf.String()), 1)
}

func TestLogger_ChildAttributes(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf, LevelDebug)

	capture := root.WithComponent("controller").WithCapture("abc-123").With("mode", "rendered", 42, "skipped")
	capture.Info("capture started")
	root.Info("no attrs")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 2)
	assert.Equal(t, "controller", entries[0]["component"])
	assert.Equal(t, "abc-123", entries[0]["capture_id"])
	assert.Equal(t, "rendered", entries[0]["mode"])
	assert.NotContains(t, entries[1], "capture_id")
}

func TestLogger_WithNoArgsReturnsSameLogger(t *testing.T) {
	logger := NopLogger()
	assert.Same(t, logger, logger.With())
}

func TestValidLevels(t *testing.T) {
	assert.Equal(t, []string{"DEBUG", "INFO", "WARN", "ERROR"}, ValidLevels())
}
