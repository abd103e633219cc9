package config

import (
	"time"

	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/metrics"
	prometheusmetrics "github.com/dlgate/download-gate/metrics/prometheus"
	gometrics "github.com/rcrowley/go-metrics"
	influxdb "github.com/vrischmann/go-metrics-influxdb"
)

// NewMetricsEngine reads the configuration and returns the appropriate metrics engine
// for this instance.
func NewMetricsEngine(cfg *config.Configuration, providerIDs []string) *DetailedMetricsEngine {
	// Create a list of metrics engines to use.
	// Capacity of 2, as unlikely to have more than 2 metrics backends, and in the case
	// of 1 we won't use the list so it will be garbage collected.
	engineList := make(MultiMetricsEngine, 0, 2)
	returnEngine := DetailedMetricsEngine{}

	if cfg.Metrics.Influxdb.Enabled() {
		returnEngine.GoMetrics = metrics.NewMetrics(gometrics.NewPrefixedRegistry("downloadgate."), providerIDs)
		engineList = append(engineList, returnEngine.GoMetrics)
		// Set up the Influx logger
		go influxdb.InfluxDB(
			returnEngine.GoMetrics.MetricsRegistry, // metrics registry
			time.Second*time.Duration(cfg.Metrics.Influxdb.MetricSendInterval), // Configurable interval
			cfg.Metrics.Influxdb.Host,        // the InfluxDB url
			cfg.Metrics.Influxdb.Database,    // your InfluxDB database
			cfg.Metrics.Influxdb.Measurement, // your measurement
			cfg.Metrics.Influxdb.Username,    // your InfluxDB user
			cfg.Metrics.Influxdb.Password,    // your InfluxDB password
			true,                             // align timestamps
		)
		// Influx is not added to the engine list as goMetrics takes care of it already.
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		// Set up the Prometheus metrics.
		returnEngine.PrometheusMetrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus, providerIDs)
		engineList = append(engineList, returnEngine.PrometheusMetrics)
	}

	// Now return the proper metrics engine
	if len(engineList) > 1 {
		returnEngine.MetricsEngine = &engineList
	} else if len(engineList) == 1 {
		returnEngine.MetricsEngine = engineList[0]
	} else {
		returnEngine.MetricsEngine = &DummyMetricsEngine{}
	}

	return &returnEngine
}

// DetailedMetricsEngine is a MetricsEngine that preserves links to underlying metrics engines.
type DetailedMetricsEngine struct {
	metrics.MetricsEngine
	GoMetrics         *metrics.Metrics
	PrometheusMetrics *prometheusmetrics.Metrics
}

// MultiMetricsEngine logs metrics to multiple metrics databases The can be useful in transitioning
// an instance from one engine to another, you can run both in parallel to verify stats match up.
type MultiMetricsEngine []metrics.MetricsEngine

// RecordConnectionAccept across all engines
func (me *MultiMetricsEngine) RecordConnectionAccept(success bool) {
	for _, thisME := range *me {
		thisME.RecordConnectionAccept(success)
	}
}

// RecordConnectionClose across all engines
func (me *MultiMetricsEngine) RecordConnectionClose(success bool) {
	for _, thisME := range *me {
		thisME.RecordConnectionClose(success)
	}
}

// RecordGateCreated across all engines
func (me *MultiMetricsEngine) RecordGateCreated() {
	for _, thisME := range *me {
		thisME.RecordGateCreated()
	}
}

// RecordPhase across all engines
func (me *MultiMetricsEngine) RecordPhase(phase string) {
	for _, thisME := range *me {
		thisME.RecordPhase(phase)
	}
}

// RecordProviderLoad across all engines
func (me *MultiMetricsEngine) RecordProviderLoad(providerID string, outcome metrics.LoadOutcome, loadTime time.Duration) {
	for _, thisME := range *me {
		thisME.RecordProviderLoad(providerID, outcome, loadTime)
	}
}

// RecordWaterfall across all engines
func (me *MultiMetricsEngine) RecordWaterfall(outcome metrics.WaterfallOutcome) {
	for _, thisME := range *me {
		thisME.RecordWaterfall(outcome)
	}
}

// RecordRedirect across all engines
func (me *MultiMetricsEngine) RecordRedirect(withAd bool) {
	for _, thisME := range *me {
		thisME.RecordRedirect(withAd)
	}
}

// RecordTelemetry across all engines
func (me *MultiMetricsEngine) RecordTelemetry(status metrics.TelemetryStatus) {
	for _, thisME := range *me {
		thisME.RecordTelemetry(status)
	}
}

// RecordActiveGates across all engines
func (me *MultiMetricsEngine) RecordActiveGates(count int) {
	for _, thisME := range *me {
		thisME.RecordActiveGates(count)
	}
}

// DummyMetricsEngine is a Noop metrics engine in case no metrics are configured. (may also be useful for tests)
type DummyMetricsEngine struct{}

// RecordConnectionAccept as a noop
func (me *DummyMetricsEngine) RecordConnectionAccept(success bool) {
}

// RecordConnectionClose as a noop
func (me *DummyMetricsEngine) RecordConnectionClose(success bool) {
}

// RecordGateCreated as a noop
func (me *DummyMetricsEngine) RecordGateCreated() {
}

// RecordPhase as a noop
func (me *DummyMetricsEngine) RecordPhase(phase string) {
}

// RecordProviderLoad as a noop
func (me *DummyMetricsEngine) RecordProviderLoad(providerID string, outcome metrics.LoadOutcome, loadTime time.Duration) {
}

// RecordWaterfall as a noop
func (me *DummyMetricsEngine) RecordWaterfall(outcome metrics.WaterfallOutcome) {
}

// RecordRedirect as a noop
func (me *DummyMetricsEngine) RecordRedirect(withAd bool) {
}

// RecordTelemetry as a noop
func (me *DummyMetricsEngine) RecordTelemetry(status metrics.TelemetryStatus) {
}

// RecordActiveGates as a noop
func (me *DummyMetricsEngine) RecordActiveGates(count int) {
}
