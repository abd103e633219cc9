package gate

import (
	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/errortypes"
)

// State is the gate's own record. The driver owns the only mutable copy; everything else sees
// Snapshots.
type State struct {
	Phase               Phase
	CountdownRemaining  int
	ActiveAdvertisement *ads.Advertisement
	ActiveProviderID    string
	// TriedProviderIDs is an ordered set. It only grows until a retry starts a new lifecycle.
	TriedProviderIDs []string
	LastError        errortypes.Kind
	ErrorMessage     string
	// ErrorCode is the numeric code of the error behind LastError.
	ErrorCode int

	// Download is the hand-off the gate was opened with. It never changes.
	Download *ads.PendingDownload

	// Pass identifies the current waterfall pass. Results from older passes are stale.
	Pass uint64
	// Version increases on every applied transition.
	Version uint64
}

// NewState returns the initial state of a gate for download.
func NewState(download *ads.PendingDownload) State {
	return State{
		Phase:    PhaseInitializing,
		Download: download,
	}
}

// CanSkip is true while a closable ad with a creative is counting down.
func (s State) CanSkip() bool {
	return s.Phase == PhaseCountdownRunning &&
		s.CountdownRemaining > 0 &&
		s.ActiveAdvertisement.Skippable()
}

// CanContinue is true when the gate failed but there is a download url to fall back on.
func (s State) CanContinue() bool {
	return s.Phase == PhaseError && s.Download.HasResolvedURL()
}

// next returns a copy of s for the following transition. The tried ids are copied too, so
// earlier states never observe later changes.
func (s State) next() State {
	n := s
	n.TriedProviderIDs = append([]string(nil), s.TriedProviderIDs...)
	n.Version++
	return n
}

func (s State) tried(id string) bool {
	for _, t := range s.TriedProviderIDs {
		if t == id {
			return true
		}
	}
	return false
}

// Snapshot is a read-only view of a gate, safe to hand to other goroutines and to serialize.
// It never carries the download url.
type Snapshot struct {
	ID                  string             `json:"id"`
	Phase               Phase              `json:"phase"`
	CountdownRemaining  int                `json:"countdown_remaining"`
	ActiveAdvertisement *ads.Advertisement `json:"active_advertisement"`
	ActiveProviderID    string             `json:"active_provider_id,omitempty"`
	TriedProviderIDs    []string           `json:"tried_provider_ids"`
	LastError           errortypes.Kind    `json:"last_error,omitempty"`
	ErrorMessage        string             `json:"error_message,omitempty"`
	ErrorCode           int                `json:"error_code,omitempty"`
	CanSkip             bool               `json:"can_skip"`
	CanRetry            bool               `json:"can_retry"`
	CanContinue         bool               `json:"can_continue"`
	AppName             string             `json:"app_name,omitempty"`
	AppSlug             string             `json:"app_slug,omitempty"`
	DeviceType          ads.DeviceType     `json:"device_type,omitempty"`
	Version             uint64             `json:"version"`
}

func (s State) snapshot(id string) Snapshot {
	snap := Snapshot{
		ID:                  id,
		Phase:               s.Phase,
		CountdownRemaining:  s.CountdownRemaining,
		ActiveAdvertisement: s.ActiveAdvertisement.Clone(),
		ActiveProviderID:    s.ActiveProviderID,
		TriedProviderIDs:    append(make([]string, 0, len(s.TriedProviderIDs)), s.TriedProviderIDs...),
		LastError:           s.LastError,
		ErrorMessage:        s.ErrorMessage,
		ErrorCode:           s.ErrorCode,
		CanSkip:             s.CanSkip(),
		CanRetry:            s.Phase == PhaseError,
		CanContinue:         s.CanContinue(),
		Version:             s.Version,
	}
	if s.Download != nil {
		snap.AppName = s.Download.AppName
		snap.AppSlug = s.Download.AppSlug
		snap.DeviceType = s.Download.DeviceType
	}
	return snap
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.ActiveAdvertisement = s.ActiveAdvertisement.Clone()
	c.TriedProviderIDs = append(make([]string, 0, len(s.TriedProviderIDs)), s.TriedProviderIDs...)
	return c
}
