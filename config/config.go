package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlgate/download-gate/errortypes"
	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	ExternalURL    string `mapstructure:"external_url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	AdminPort      int    `mapstructure:"admin_port"`
	EnableGzip     bool   `mapstructure:"enable_gzip"`
	StatusResponse string `mapstructure:"status_response"`
	// PemCertsFile is an optional bundle of extra root certificates for outbound https.
	PemCertsFile string `mapstructure:"certificates_file"`

	Gate       Gate       `mapstructure:"gate"`
	HTTPClient HTTPClient `mapstructure:"http_client"`

	// Providers is the provider registry. Order matters: it breaks priority ties.
	Providers ProviderRegistry `mapstructure:"providers"`
	// DisabledProviders turns off providers by id without editing the registry, e.g. from the environment.
	DisabledProviders []string `mapstructure:"disabled_providers"`

	Analytics Analytics `mapstructure:"analytics"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

// Gate holds the timing constants of the download gate.
type Gate struct {
	// FallbackCountdownSeconds is the countdown used when no provider could load an ad.
	FallbackCountdownSeconds int `mapstructure:"fallback_countdown_seconds"`
	// DirectLinkCountdownSeconds is the countdown given to DIRECT_LINK advertisements.
	DirectLinkCountdownSeconds int `mapstructure:"direct_link_countdown_seconds"`
	TickIntervalMs             int `mapstructure:"tick_interval_ms"`
	SessionTTLSeconds          int `mapstructure:"session_ttl_seconds"`
	SessionCleanupSeconds      int `mapstructure:"session_cleanup_seconds"`
	// CreateRateLimit is the number of gates a single client IP may open per second. 0 disables the limit.
	CreateRateLimit float64 `mapstructure:"create_rate_limit"`
	// ActiveGatesRefreshSeconds is how often the active gates gauge is refreshed.
	ActiveGatesRefreshSeconds int `mapstructure:"active_gates_refresh_seconds"`
	// AutoRevealFallback reveals the download on its own when the fallback countdown ends.
	AutoRevealFallback bool `mapstructure:"auto_reveal_fallback"`
	// TrustForwardedFor makes the create rate limit key on X-Forwarded-For / X-Real-IP. Only enable
	// it behind a proxy which overwrites those headers.
	TrustForwardedFor bool `mapstructure:"trust_forwarded_for"`
}

func (cfg *Gate) TickInterval() time.Duration {
	return time.Duration(cfg.TickIntervalMs) * time.Millisecond
}

func (cfg *Gate) SessionTTL() time.Duration {
	return time.Duration(cfg.SessionTTLSeconds) * time.Second
}

func (cfg *Gate) SessionCleanupInterval() time.Duration {
	return time.Duration(cfg.SessionCleanupSeconds) * time.Second
}

func (cfg *Gate) validate(errs []error) []error {
	if cfg.FallbackCountdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("gate.fallback_countdown_seconds must be >= 0. Got %d", cfg.FallbackCountdownSeconds))
	}
	if cfg.DirectLinkCountdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("gate.direct_link_countdown_seconds must be >= 0. Got %d", cfg.DirectLinkCountdownSeconds))
	}
	if cfg.TickIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("gate.tick_interval_ms must be positive. Got %d", cfg.TickIntervalMs))
	}
	if cfg.SessionTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("gate.session_ttl_seconds must be positive. Got %d", cfg.SessionTTLSeconds))
	}
	if cfg.SessionCleanupSeconds < 0 {
		errs = append(errs, fmt.Errorf("gate.session_cleanup_seconds must be >= 0. Got %d", cfg.SessionCleanupSeconds))
	}
	if cfg.CreateRateLimit < 0 {
		errs = append(errs, fmt.Errorf("gate.create_rate_limit must be >= 0. Got %f", cfg.CreateRateLimit))
	}
	return errs
}

// HTTPClient configures the client used to probe ad creatives and ship telemetry.
type HTTPClient struct {
	MaxConnsPerHost     int `mapstructure:"max_connections_per_host"`
	MaxIdleConns        int `mapstructure:"max_idle_connections"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_connections_per_host"`
	IdleConnTimeout     int `mapstructure:"idle_connection_timeout_seconds"`
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}

	c.Providers = c.Providers.withDefaults().disable(c.DisabledProviders)

	errs := c.validate()
	for _, warning := range errortypes.WarningOnly(errs) {
		glog.Warningf("config: %v (code %d)", warning, errortypes.ReadCode(warning))
	}
	if errortypes.ContainsFatalError(errs) {
		return &c, errortypes.NewAggregateErrors("validation errors", errortypes.FatalOnly(errs))
	}
	return &c, nil
}

func (cfg *Configuration) validate() []error {
	var errs []error
	if cfg.Port <= 0 {
		errs = append(errs, errors.New("port must be positive"))
	}
	if cfg.AdminPort <= 0 {
		errs = append(errs, errors.New("admin_port must be positive"))
	}
	if cfg.Port == cfg.AdminPort {
		errs = append(errs, errors.New("port and admin_port must differ"))
	}
	errs = cfg.Gate.validate(errs)
	errs = cfg.Providers.validate(errs)
	errs = validateDisabledProviders(cfg.DisabledProviders, cfg.Providers, errs)
	errs = cfg.Analytics.validate(errs)
	errs = cfg.Metrics.validate(errs)
	return errs
}

// SetupViper registers defaults and config sources. Environment variables use the DLGATE_ prefix,
// with "." replaced by "_" (e.g. DLGATE_GATE_FALLBACK_COUNTDOWN_SECONDS).
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("status_response", "")
	v.SetDefault("certificates_file", "")

	v.SetDefault("gate.fallback_countdown_seconds", 5)
	v.SetDefault("gate.direct_link_countdown_seconds", 3)
	v.SetDefault("gate.tick_interval_ms", 1000)
	v.SetDefault("gate.session_ttl_seconds", 900)
	v.SetDefault("gate.session_cleanup_seconds", 60)
	v.SetDefault("gate.create_rate_limit", 5)
	v.SetDefault("gate.active_gates_refresh_seconds", 10)
	v.SetDefault("gate.auto_reveal_fallback", false)
	v.SetDefault("gate.trust_forwarded_for", false)

	v.SetDefault("http_client.max_connections_per_host", 0)
	v.SetDefault("http_client.max_idle_connections", 400)
	v.SetDefault("http_client.max_idle_connections_per_host", 10)
	v.SetDefault("http_client.idle_connection_timeout_seconds", 60)

	v.SetDefault("providers", []interface{}{})
	v.SetDefault("disabled_providers", []string{})

	v.SetDefault("analytics.buffer_size", 1024)
	v.SetDefault("analytics.file.filename", "")
	v.SetDefault("analytics.http.enabled", false)
	v.SetDefault("analytics.http.endpoint", "")
	v.SetDefault("analytics.http.max_events", 100)
	v.SetDefault("analytics.http.max_bytes", 1<<20)
	v.SetDefault("analytics.http.flush_interval_ms", 5000)

	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.measurement", "download_gate")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.collection_rate_seconds", 20)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)

	v.SetEnvPrefix("DLGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.ReadInConfig()
}
