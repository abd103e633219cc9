package metrics

import (
	"time"
)

// LoadOutcome is the result of one provider load attempt.
type LoadOutcome string

const (
	LoadOutcomeSuccess LoadOutcome = "success"
	LoadOutcomeTimeout LoadOutcome = "timeout"
	LoadOutcomeFailure LoadOutcome = "failure"
)

func LoadOutcomes() []LoadOutcome {
	return []LoadOutcome{
		LoadOutcomeSuccess,
		LoadOutcomeTimeout,
		LoadOutcomeFailure,
	}
}

// WaterfallOutcome is the result of one waterfall pass.
type WaterfallOutcome string

const (
	// WaterfallFilled means a provider produced an advertisement.
	WaterfallFilled WaterfallOutcome = "filled"
	// WaterfallExhausted means every eligible provider was tried and failed.
	WaterfallExhausted WaterfallOutcome = "exhausted"
	// WaterfallNoProviders means no provider was eligible, so nothing was tried.
	WaterfallNoProviders WaterfallOutcome = "no_providers"
)

func WaterfallOutcomes() []WaterfallOutcome {
	return []WaterfallOutcome{
		WaterfallFilled,
		WaterfallExhausted,
		WaterfallNoProviders,
	}
}

// TelemetryStatus is what happened to one telemetry event.
type TelemetryStatus string

const (
	TelemetrySent    TelemetryStatus = "sent"
	TelemetryDropped TelemetryStatus = "dropped"
	TelemetryFailed  TelemetryStatus = "failed"
)

func TelemetryStatuses() []TelemetryStatus {
	return []TelemetryStatus{
		TelemetrySent,
		TelemetryDropped,
		TelemetryFailed,
	}
}

// Gate phases, as recorded. They mirror the gate's own phase names.
const (
	PhaseInitializing     = "INITIALIZING"
	PhaseAdLoading        = "AD_LOADING"
	PhaseCountdownRunning = "COUNTDOWN_RUNNING"
	PhaseReady            = "READY"
	PhaseRedirecting      = "REDIRECTING"
	PhaseError            = "ERROR"
)

func Phases() []string {
	return []string{
		PhaseInitializing,
		PhaseAdLoading,
		PhaseCountdownRunning,
		PhaseReady,
		PhaseRedirecting,
		PhaseError,
	}
}

// UnknownProvider is the label used for provider ids which were not registered up front.
const UnknownProvider = "unknown"

// MetricsEngine is a generic interface to record metrics into the desired backend.
// The first three metrics function fire off once per incoming connection or gate,
// the rest as the gates progress.
type MetricsEngine interface {
	RecordConnectionAccept(success bool)
	RecordConnectionClose(success bool)
	RecordGateCreated()
	RecordPhase(phase string)
	RecordProviderLoad(providerID string, outcome LoadOutcome, loadTime time.Duration)
	RecordWaterfall(outcome WaterfallOutcome)
	RecordRedirect(withAd bool)
	RecordTelemetry(status TelemetryStatus)
	RecordActiveGates(count int)
}
