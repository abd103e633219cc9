package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/analytics"
	"github.com/dlgate/download-gate/analytics/eventchannel"
	"github.com/dlgate/download-gate/config"
)

// Module batches events as JSON lines and posts them, gzipped, to a collection endpoint.
type httpModule struct {
	channel *eventchannel.EventChannel
}

func NewModule(client *http.Client, cfg config.HTTPAnalytics, clock clock.Clock) (analytics.Module, error) {
	if client == nil {
		return nil, errors.New("http analytics module needs an http client")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("http analytics module needs an endpoint")
	}
	sender := eventchannel.NewHttpSender(client, cfg.Endpoint)
	interval := time.Duration(cfg.FlushIntervalMs) * time.Millisecond
	return &httpModule{
		channel: eventchannel.NewEventChannel(sender, clock, cfg.MaxBytes, cfg.MaxEvents, interval),
	}, nil
}

func (m *httpModule) LogEvent(e *analytics.Event) error {
	if e == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	m.channel.Push(append(payload, '\n'))
	return nil
}

func (m *httpModule) Shutdown() {
	m.channel.Close()
}
