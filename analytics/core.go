package analytics

import (
	"time"
)

type EventType string

const (
	EventImpression EventType = "IMPRESSION"
	EventClick      EventType = "CLICK"
	EventError      EventType = "ERROR"
)

// Event is one telemetry record. ProviderID is nil when no advertisement was involved.
type Event struct {
	Event      EventType `json:"event"`
	ProviderID *string   `json:"providerId"`
	AppSlug    string    `json:"appSlug"`
	Timestamp  time.Time `json:"timestamp"`
	GateID     string    `json:"gateId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Module must be implemented by analytics modules to ship telemetry events somewhere.
// LogEvent is called from the reporter worker, never from a gate, so it may block briefly.
type Module interface {
	LogEvent(*Event) error
	Shutdown()
}

// Reporter accepts events from gates. Report must never block the caller.
type Reporter interface {
	Report(*Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(*Event)

func (f ReporterFunc) Report(e *Event) {
	f(e)
}

func ProviderRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
