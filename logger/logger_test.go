package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, getLogLevel("", "development"))
	assert.Equal(t, zerolog.InfoLevel, getLogLevel("", "production"))
	assert.Equal(t, zerolog.WarnLevel, getLogLevel("warn", "development"))
	assert.Equal(t, zerolog.InfoLevel, getLogLevel("not-a-level", ""))
}

func TestForComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf).ForComponent("crawler")

	log.Info().Str("url", "https://example.com").Msg("fetched")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "crawler", entry["component"])
	assert.Equal(t, "https://example.com", entry["url"])
	assert.Equal(t, "fetched", entry["message"])
}

func TestPhaseLogsElapsed(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	done := log.Phase("crawl")
	done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Phase started")
	assert.Contains(t, lines[1], "Phase finished")
	assert.Contains(t, lines[1], `"elapsed"`)
}

func TestInitWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logs", "scraper.log")

	log, err := Init(Options{Level: "info", File: file, MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	log.Info().Msg("hello from test")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logger initialized")
	assert.Contains(t, string(data), "hello from test")
}

func TestWithFieldsAndWithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf).
		WithFields(Fields{"run_id": "abc", "city": "Woburn, MA"}).
		WithError(errors.New("boom"))

	log.Warn().Msg("skipped")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "Woburn, MA", entry["city"])
	assert.Equal(t, "boom", entry["error"])
}

func TestIsDebugEnabled(t *testing.T) {
	debug, err := Init(Options{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, debug.IsDebugEnabled())

	info, err := Init(Options{Level: "info"})
	require.NoError(t, err)
	assert.False(t, info.IsDebugEnabled())

	assert.False(t, Nop().IsDebugEnabled())
}
