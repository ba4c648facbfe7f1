package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, FormatText)

	logger.Debug("hidden")
	logger.Info("export blocked", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"export blocked\"")
	assert.Contains(t, out, "err=boom")
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug, FormatJSON)
	logger.Debug("connection rejected", "rule", "start_leaf", "error", "nope")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "connection rejected", entry["msg"])
	assert.Equal(t, "start_leaf", entry["rule"])
	assert.Equal(t, "nope", entry["err"])
	assert.NotContains(t, entry, "error")
}

func TestNewNop(t *testing.T) {
	assert.False(t, NewNop().Enabled(t.Context(), slog.LevelError))
}
