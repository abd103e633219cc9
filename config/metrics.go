package config

import (
	"fmt"
	"time"
)

type Metrics struct {
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type InfluxMetrics struct {
	Host               string `mapstructure:"host"`
	Database           string `mapstructure:"database"`
	Measurement        string `mapstructure:"measurement"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MetricSendInterval int    `mapstructure:"collection_rate_seconds"`
}

// Enabled is true when metrics should be exported to InfluxDB.
func (m *InfluxMetrics) Enabled() bool {
	return m.Host != ""
}

type PrometheusMetrics struct {
	Port             int    `mapstructure:"port"`
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (m *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(m.TimeoutMillisRaw) * time.Millisecond
}

func (m *Metrics) validate(errs []error) []error {
	if m.Influxdb.Enabled() {
		if m.Influxdb.Database == "" {
			errs = append(errs, fmt.Errorf("metrics.influxdb.database is required when metrics.influxdb.host is set"))
		}
		if m.Influxdb.MetricSendInterval <= 0 {
			errs = append(errs, fmt.Errorf("metrics.influxdb.collection_rate_seconds must be positive. Got %d", m.Influxdb.MetricSendInterval))
		}
	}
	if m.Prometheus.Port < 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.port must be >= 0. Got %d", m.Prometheus.Port))
	}
	if m.Prometheus.Port > 0 && m.Prometheus.TimeoutMillisRaw <= 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.timeout_ms must be positive. Got %d", m.Prometheus.TimeoutMillisRaw))
	}
	return errs
}
