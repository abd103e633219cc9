package metrics

import (
	"fmt"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of MetricsEngine.
type Metrics struct {
	MetricsRegistry            metrics.Registry
	ConnectionCounter          metrics.Counter
	ConnectionAcceptErrorMeter metrics.Meter
	ConnectionCloseErrorMeter  metrics.Meter
	GatesCreatedMeter          metrics.Meter
	ActiveGatesGauge           metrics.Gauge
	PhaseMeters                map[string]metrics.Meter
	WaterfallMeters            map[WaterfallOutcome]metrics.Meter
	RedirectWithAdMeter        metrics.Meter
	RedirectWithoutAdMeter     metrics.Meter
	TelemetryMeters            map[TelemetryStatus]metrics.Meter

	// Providers are fixed at startup. Ids missing from this map are recorded as UnknownProvider.
	providerMetrics map[string]*ProviderMetrics
}

// ProviderMetrics houses the load metrics of one provider.
type ProviderMetrics struct {
	RequestMeter metrics.Meter
	LoadMeters   map[LoadOutcome]metrics.Meter
	LoadTimer    metrics.Timer
}

// NewBlankMetrics creates a new Metrics object with all blank metrics object. Nothing recorded on it
// is written anywhere, which makes it useful in tests.
func NewBlankMetrics(registry metrics.Registry, providerIDs []string) *Metrics {
	blankMeter := &metrics.NilMeter{}
	newMetrics := &Metrics{
		MetricsRegistry:            registry,
		ConnectionCounter:          metrics.NilCounter{},
		ConnectionAcceptErrorMeter: blankMeter,
		ConnectionCloseErrorMeter:  blankMeter,
		GatesCreatedMeter:          blankMeter,
		ActiveGatesGauge:           metrics.NilGauge{},
		PhaseMeters:                make(map[string]metrics.Meter),
		WaterfallMeters:            make(map[WaterfallOutcome]metrics.Meter),
		RedirectWithAdMeter:        blankMeter,
		RedirectWithoutAdMeter:     blankMeter,
		TelemetryMeters:            make(map[TelemetryStatus]metrics.Meter),

		providerMetrics: make(map[string]*ProviderMetrics, len(providerIDs)+1),
	}
	for _, p := range Phases() {
		newMetrics.PhaseMeters[p] = blankMeter
	}
	for _, o := range WaterfallOutcomes() {
		newMetrics.WaterfallMeters[o] = blankMeter
	}
	for _, s := range TelemetryStatuses() {
		newMetrics.TelemetryMeters[s] = blankMeter
	}
	for _, id := range providerIDs {
		newMetrics.providerMetrics[id] = makeBlankProviderMetrics()
	}
	newMetrics.providerMetrics[UnknownProvider] = makeBlankProviderMetrics()
	return newMetrics
}

// NewMetrics creates a new Metrics object with every metric registered on registry.
func NewMetrics(registry metrics.Registry, providerIDs []string) *Metrics {
	newMetrics := NewBlankMetrics(registry, providerIDs)
	newMetrics.ConnectionCounter = metrics.GetOrRegisterCounter("active_connections", registry)
	newMetrics.ConnectionAcceptErrorMeter = metrics.GetOrRegisterMeter("connection_accept_errors", registry)
	newMetrics.ConnectionCloseErrorMeter = metrics.GetOrRegisterMeter("connection_close_errors", registry)
	newMetrics.GatesCreatedMeter = metrics.GetOrRegisterMeter("gates.created", registry)
	newMetrics.ActiveGatesGauge = metrics.GetOrRegisterGauge("gates.active", registry)
	newMetrics.RedirectWithAdMeter = metrics.GetOrRegisterMeter("redirects.with_ad", registry)
	newMetrics.RedirectWithoutAdMeter = metrics.GetOrRegisterMeter("redirects.without_ad", registry)
	for _, p := range Phases() {
		newMetrics.PhaseMeters[p] = metrics.GetOrRegisterMeter("gates.phase."+p, registry)
	}
	for _, o := range WaterfallOutcomes() {
		newMetrics.WaterfallMeters[o] = metrics.GetOrRegisterMeter("waterfall."+string(o), registry)
	}
	for _, s := range TelemetryStatuses() {
		newMetrics.TelemetryMeters[s] = metrics.GetOrRegisterMeter("telemetry."+string(s), registry)
	}
	for id, pm := range newMetrics.providerMetrics {
		registerProviderMetrics(registry, id, pm)
	}
	return newMetrics
}

func makeBlankProviderMetrics() *ProviderMetrics {
	blankMeter := &metrics.NilMeter{}
	pm := &ProviderMetrics{
		RequestMeter: blankMeter,
		LoadMeters:   make(map[LoadOutcome]metrics.Meter),
		LoadTimer:    &metrics.NilTimer{},
	}
	for _, o := range LoadOutcomes() {
		pm.LoadMeters[o] = blankMeter
	}
	return pm
}

func registerProviderMetrics(registry metrics.Registry, providerID string, pm *ProviderMetrics) {
	pm.RequestMeter = metrics.GetOrRegisterMeter(fmt.Sprintf("provider.%s.requests", providerID), registry)
	pm.LoadTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("provider.%s.load_time", providerID), registry)
	for _, o := range LoadOutcomes() {
		pm.LoadMeters[o] = metrics.GetOrRegisterMeter(fmt.Sprintf("provider.%s.%s", providerID, o), registry)
	}
}

func (me *Metrics) getProviderMetrics(providerID string) *ProviderMetrics {
	if pm, ok := me.providerMetrics[providerID]; ok {
		return pm
	}
	return me.providerMetrics[UnknownProvider]
}

// RecordConnectionAccept implements a part of the MetricsEngine interface
func (me *Metrics) RecordConnectionAccept(success bool) {
	if success {
		me.ConnectionCounter.Inc(1)
	} else {
		me.ConnectionAcceptErrorMeter.Mark(1)
	}
}

// RecordConnectionClose implements a part of the MetricsEngine interface
func (me *Metrics) RecordConnectionClose(success bool) {
	if success {
		me.ConnectionCounter.Dec(1)
	} else {
		me.ConnectionCloseErrorMeter.Mark(1)
	}
}

func (me *Metrics) RecordGateCreated() {
	me.GatesCreatedMeter.Mark(1)
}

func (me *Metrics) RecordPhase(phase string) {
	if m, ok := me.PhaseMeters[phase]; ok {
		m.Mark(1)
	}
}

func (me *Metrics) RecordProviderLoad(providerID string, outcome LoadOutcome, loadTime time.Duration) {
	pm := me.getProviderMetrics(providerID)
	pm.RequestMeter.Mark(1)
	if m, ok := pm.LoadMeters[outcome]; ok {
		m.Mark(1)
	}
	pm.LoadTimer.Update(loadTime)
}

func (me *Metrics) RecordWaterfall(outcome WaterfallOutcome) {
	if m, ok := me.WaterfallMeters[outcome]; ok {
		m.Mark(1)
	}
}

func (me *Metrics) RecordRedirect(withAd bool) {
	if withAd {
		me.RedirectWithAdMeter.Mark(1)
	} else {
		me.RedirectWithoutAdMeter.Mark(1)
	}
}

func (me *Metrics) RecordTelemetry(status TelemetryStatus) {
	if m, ok := me.TelemetryMeters[status]; ok {
		m.Mark(1)
	}
}

func (me *Metrics) RecordActiveGates(count int) {
	me.ActiveGatesGauge.Update(int64(count))
}
