package http

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/analytics"
	"github.com/dlgate/download-gate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gr, err := gzip.NewReader(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, _ := io.ReadAll(gr)
	c.mu.Lock()
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		c.lines = append(c.lines, line)
	}
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *collector) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestModulePostsBatches(t *testing.T) {
	c := &collector{}
	server := httptest.NewServer(c)
	defer server.Close()

	m, err := NewModule(server.Client(), config.HTTPAnalytics{
		Enabled:         true,
		Endpoint:        server.URL,
		MaxEvents:       2,
		MaxBytes:        1 << 20,
		FlushIntervalMs: 60000,
	}, clock.NewMock())
	require.NoError(t, err)

	assert.NoError(t, m.LogEvent(&analytics.Event{Event: analytics.EventImpression, AppSlug: "a"}))
	assert.NoError(t, m.LogEvent(&analytics.Event{Event: analytics.EventClick, AppSlug: "a"}))
	assert.NoError(t, m.LogEvent(&analytics.Event{Event: analytics.EventError, AppSlug: "b"}))
	m.Shutdown()

	lines := c.received()
	require.Len(t, lines, 3)
	assert.True(t, strings.Contains(lines[0], `"IMPRESSION"`))
	assert.True(t, strings.Contains(lines[2], `"ERROR"`))
}

func TestModuleFlushesOnInterval(t *testing.T) {
	c := &collector{}
	server := httptest.NewServer(c)
	defer server.Close()

	mockClock := clock.NewMock()
	m, err := NewModule(server.Client(), config.HTTPAnalytics{
		Endpoint:        server.URL,
		MaxEvents:       100,
		MaxBytes:        1 << 20,
		FlushIntervalMs: 1000,
	}, mockClock)
	require.NoError(t, err)
	defer m.Shutdown()

	require.NoError(t, m.LogEvent(&analytics.Event{Event: analytics.EventClick, AppSlug: "a"}))
	mockClock.Add(time.Second)

	assert.Eventually(t, func() bool { return len(c.received()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestNewModuleRequiresEndpoint(t *testing.T) {
	_, err := NewModule(http.DefaultClient, config.HTTPAnalytics{}, clock.NewMock())
	assert.Error(t, err)

	_, err = NewModule(nil, config.HTTPAnalytics{Endpoint: "http://localhost"}, clock.NewMock())
	assert.Error(t, err)
}

