package config

import (
	"fmt"

	validator "github.com/asaskevich/govalidator"
)

// Analytics configures the telemetry reporter and its modules.
type Analytics struct {
	// BufferSize bounds the reporter's queue. Events beyond it are dropped, never waited on.
	BufferSize int           `mapstructure:"buffer_size"`
	File       FileLogs      `mapstructure:"file"`
	HTTP       HTTPAnalytics `mapstructure:"http"`
}

// FileLogs Corresponding config for FileLogger as a telemetry module.
type FileLogs struct {
	Filename string `mapstructure:"filename"`
}

// HTTPAnalytics batches events and posts them, gzipped, to a collection endpoint.
type HTTPAnalytics struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	MaxEvents       int64  `mapstructure:"max_events"`
	MaxBytes        int64  `mapstructure:"max_bytes"`
	FlushIntervalMs int    `mapstructure:"flush_interval_ms"`
}

func (a *Analytics) validate(errs []error) []error {
	if a.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("analytics.buffer_size must be positive. Got %d", a.BufferSize))
	}
	if !a.HTTP.Enabled {
		return errs
	}
	if !validator.IsURL(a.HTTP.Endpoint) {
		errs = append(errs, fmt.Errorf("analytics.http.endpoint %q is not a valid url", a.HTTP.Endpoint))
	}
	if a.HTTP.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("analytics.http.max_events must be positive. Got %d", a.HTTP.MaxEvents))
	}
	if a.HTTP.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("analytics.http.max_bytes must be positive. Got %d", a.HTTP.MaxBytes))
	}
	if a.HTTP.FlushIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("analytics.http.flush_interval_ms must be positive. Got %d", a.HTTP.FlushIntervalMs))
	}
	return errs
}
