package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "text", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("unlocked", "entries", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=unlocked")
	assert.Contains(t, out, "entries=3")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	require.NoError(t, err)

	logger.Debug("snapshot recorded", "seq", 4)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "snapshot recorded", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.EqualValues(t, 4, rec["seq"])
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "text", &buf)
	require.NoError(t, err)

	logger.Info("oops", "password", "p@ss1", "master_passphrase", "correct-horse", "site", "github.com")

	out := buf.String()
	assert.NotContains(t, out, "p@ss1")
	assert.NotContains(t, out, "correct-horse")
	assert.Contains(t, out, redacted)
	assert.Contains(t, out, "site=github.com")
}

func TestInvalidSettings(t *testing.T) {
	_, err := New("verbose", "text", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
