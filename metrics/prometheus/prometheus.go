package prometheusmetrics

import (
	"time"

	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry
	// Gatherer is what the prometheus server exposes.
	Gatherer prometheus.Gatherer

	connCounter    prometheus.Gauge
	connError      *prometheus.CounterVec
	gatesCreated   prometheus.Counter
	activeGates    prometheus.Gauge
	phases         *prometheus.CounterVec
	providerLoads  *prometheus.CounterVec
	providerTimer  *prometheus.HistogramVec
	waterfalls     *prometheus.CounterVec
	redirects      *prometheus.CounterVec
	telemetry      *prometheus.CounterVec
	knownProviders map[string]struct{}
}

// NewMetrics registers every metric on a fresh registry. providerIDs bounds the provider label.
func NewMetrics(cfg config.PrometheusMetrics, providerIDs []string) *Metrics {
	timerBuckets := prometheus.LinearBuckets(0.05, 0.05, 20)
	timerBuckets = append(timerBuckets, []float64{1.5, 2.0, 3.0, 5.0, 10.0}...)

	registry := prometheus.NewRegistry()
	metrics := Metrics{
		Registry:       registry,
		Gatherer:       registry,
		knownProviders: make(map[string]struct{}, len(providerIDs)),
	}
	for _, id := range providerIDs {
		metrics.knownProviders[id] = struct{}{}
	}

	metrics.connCounter = newGauge(cfg, "active_connections",
		"Current number of active (open) connections.")
	metrics.connError = newCounter(cfg, "connection_errors_total",
		"Errors reported on the connections coming in.",
		[]string{"connection_error"})
	metrics.gatesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "gates_created_total",
		Help:      "Number of download gates opened.",
	})
	metrics.activeGates = newGauge(cfg, "active_gates",
		"Current number of live download gates.")
	metrics.phases = newCounter(cfg, "gate_phases_total",
		"Number of times gates entered each phase.",
		[]string{"phase"})
	metrics.providerLoads = newCounter(cfg, "provider_loads_total",
		"Number of provider load attempts by outcome.",
		[]string{"provider", "outcome"})
	metrics.providerTimer = newHistogram(cfg, "provider_load_time_seconds",
		"Seconds to resolve each provider load attempt.",
		[]string{"provider"}, timerBuckets)
	metrics.waterfalls = newCounter(cfg, "waterfalls_total",
		"Number of waterfall passes by outcome.",
		[]string{"outcome"})
	metrics.redirects = newCounter(cfg, "redirects_total",
		"Number of revealed downloads.",
		[]string{"with_ad"})
	metrics.telemetry = newCounter(cfg, "telemetry_events_total",
		"Number of telemetry events by delivery status.",
		[]string{"status"})

	registry.MustRegister(
		metrics.connCounter,
		metrics.connError,
		metrics.gatesCreated,
		metrics.activeGates,
		metrics.phases,
		metrics.providerLoads,
		metrics.providerTimer,
		metrics.waterfalls,
		metrics.redirects,
		metrics.telemetry,
	)
	return &metrics
}

func newGauge(cfg config.PrometheusMetrics, name string, help string) prometheus.Gauge {
	opts := prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	return prometheus.NewGauge(opts)
}

func newCounter(cfg config.PrometheusMetrics, name string, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	return prometheus.NewCounterVec(opts, labels)
}

func newHistogram(cfg config.PrometheusMetrics, name string, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	return prometheus.NewHistogramVec(opts, labels)
}

func (me *Metrics) RecordConnectionAccept(success bool) {
	if success {
		me.connCounter.Inc()
	} else {
		me.connError.WithLabelValues("accept_error").Inc()
	}
}

func (me *Metrics) RecordConnectionClose(success bool) {
	if success {
		me.connCounter.Dec()
	} else {
		me.connError.WithLabelValues("close_error").Inc()
	}
}

func (me *Metrics) RecordGateCreated() {
	me.gatesCreated.Inc()
}

func (me *Metrics) RecordPhase(phase string) {
	me.phases.WithLabelValues(phase).Inc()
}

func (me *Metrics) RecordProviderLoad(providerID string, outcome metrics.LoadOutcome, loadTime time.Duration) {
	provider := me.providerLabel(providerID)
	me.providerLoads.With(prometheus.Labels{
		"provider": provider,
		"outcome":  string(outcome),
	}).Inc()
	me.providerTimer.WithLabelValues(provider).Observe(loadTime.Seconds())
}

func (me *Metrics) RecordWaterfall(outcome metrics.WaterfallOutcome) {
	me.waterfalls.WithLabelValues(string(outcome)).Inc()
}

func (me *Metrics) RecordRedirect(withAd bool) {
	if withAd {
		me.redirects.WithLabelValues("true").Inc()
	} else {
		me.redirects.WithLabelValues("false").Inc()
	}
}

func (me *Metrics) RecordTelemetry(status metrics.TelemetryStatus) {
	me.telemetry.WithLabelValues(string(status)).Inc()
}

func (me *Metrics) RecordActiveGates(count int) {
	me.activeGates.Set(float64(count))
}

func (me *Metrics) providerLabel(providerID string) string {
	if _, ok := me.knownProviders[providerID]; ok {
		return providerID
	}
	return metrics.UnknownProvider
}
