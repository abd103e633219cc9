package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dlgate/download-gate/config"
	metricsconfig "github.com/dlgate/download-gate/metrics/config"
)

// newPrometheusServer exposes the gate metrics registry on /metrics. The scrape handler counts its
// own requests on the same registry.
func newPrometheusServer(cfg *config.Configuration, metrics *metricsconfig.DetailedMetricsEngine) (*http.Server, error) {
	if metrics == nil || metrics.PrometheusMetrics == nil {
		return nil, errors.New("metrics.prometheus.port is set but no prometheus metrics engine was built")
	}
	proMetrics := metrics.PrometheusMetrics

	scrape := promhttp.HandlerFor(proMetrics.Gatherer, promhttp.HandlerOpts{
		ErrorLog:            loggerForPrometheus{},
		MaxRequestsInFlight: 5,
		Timeout:             cfg.Metrics.Prometheus.Timeout(),
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(proMetrics.Registry, scrape))

	return &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.Metrics.Prometheus.Port),
		Handler: mux,
	}, nil
}

type loggerForPrometheus struct{}

func (loggerForPrometheus) Println(v ...interface{}) {
	glog.Warningln(v...)
}
