// Package logging tests for structured JSON logging.
package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLogger builds an isolated logger writing to buf.
func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return newLogger(buf, level)
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelInfo)

	logger.Info("sync complete", map[string]interface{}{"pushed": 3})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "sync complete", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, float64(3), entries[0]["pushed"])
	assert.Contains(t, entries[0], "timestamp")
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["message"])
}

func TestLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelInfo)

	logger.Error("push failed", assert.AnError, map[string]interface{}{"table": "memories"})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, assert.AnError.Error(), entries[0]["error"])
	assert.Equal(t, "memories", entries[0]["table"])
}

func TestLoggerMergesContexts(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelInfo)

	logger.Info("merged",
		map[string]interface{}{"a": "1"},
		map[string]interface{}{"b": "2"})

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0]["a"])
	assert.Equal(t, "2", entries[0]["b"])
}

func TestGetInitializesDefault(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
}
