package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dlgate/download-gate/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventToJson(t *testing.T) {
	var b bytes.Buffer
	e := &analytics.Event{
		Event:     analytics.EventImpression,
		AppSlug:   "vlc",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, jsonifyEvent(&b, e))
	assert.JSONEq(t, `{"event":"IMPRESSION","providerId":null,"appSlug":"vlc","timestamp":"2024-01-02T03:04:05Z"}`, b.String())
}

func TestEventToJsonWithProvider(t *testing.T) {
	var b bytes.Buffer
	e := &analytics.Event{
		Event:      analytics.EventClick,
		ProviderID: analytics.ProviderRef("monetag"),
		AppSlug:    "vlc",
		GateID:     "g-1",
		Reason:     "skipped",
	}

	require.NoError(t, jsonifyEvent(&b, e))
	assert.Contains(t, b.String(), `"providerId":"monetag"`)
	assert.Contains(t, b.String(), `"gateId":"g-1"`)
	assert.Contains(t, b.String(), `"reason":"skipped"`)
}

func TestFileLogger_LogEvents(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "telemetry.log")

	fl, err := NewFileLogger(filename)
	require.NoError(t, err, "Couldn't initialize file logger")

	assert.NoError(t, fl.LogEvent(&analytics.Event{Event: analytics.EventImpression, AppSlug: "a"}))
	assert.NoError(t, fl.LogEvent(&analytics.Event{Event: analytics.EventError, AppSlug: "b", Reason: "PROCESSING_ERROR"}))
	assert.NoError(t, fl.LogEvent(nil))
	fl.Shutdown()

	contents, err := os.ReadFile(filename)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"event":"IMPRESSION"`)
	assert.Contains(t, lines[1], `"reason":"PROCESSING_ERROR"`)
	assert.Equal(t, "[fileLogger] Shutdown", lines[2])
}

func TestNewFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "telemetry.log"))
	assert.Error(t, err)
}
