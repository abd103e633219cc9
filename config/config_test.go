package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullConfig = []byte(`
host: 127.0.0.1
port: 9000
admin_port: 9060
enable_gzip: true
gate:
  fallback_countdown_seconds: 7
  direct_link_countdown_seconds: 2
  tick_interval_ms: 500
  session_ttl_seconds: 300
  create_rate_limit: 2.5
providers:
  - id: adsterra
    name: Adsterra Popunder
    enabled: true
    priority: 20
    format: POPUNDER
    timeout_ms: 1500
    countdown_seconds: 10
    closable: true
    credentials:
      script_url: //pl.example-adsterra.com/ab/cd/ef.js
  - id: monetag
    enabled: true
    priority: 10
    format: IN_PAGE_PUSH
    timeout_ms: 800
    countdown_seconds: 8
    credentials:
      container_id: ipp-slot
      script_url: https://monetag.example.com/tag.min.js
      zone_id: "9001"
  - id: hilltop
    enabled: true
    priority: 10
    format: DIRECT_LINK
    timeout_ms: 500
    credentials:
      direct_url: https://hilltop.example.com/go?z=1
disabled_providers: ["hilltop"]
analytics:
  buffer_size: 64
  file:
    filename: /var/log/gate-telemetry.log
  http:
    enabled: true
    endpoint: https://collector.example.com/intake
    max_events: 50
    max_bytes: 4096
    flush_interval_ms: 1000
metrics:
  influxdb:
    host: http://influx:8086
    database: gate
  prometheus:
    port: 8111
    namespace: dl
    subsystem: gate
`)

func cmpStrings(t *testing.T, key string, a string, b string) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %s != %s", key, a, b)
}

func cmpInts(t *testing.T, key string, a int, b int) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %d != %d", key, a, b)
}

func cmpBools(t *testing.T, key string, a bool, b bool) {
	t.Helper()
	assert.Equal(t, a, b, "%s: %t != %t", key, a, b)
}

func newDefaultConfig(t *testing.T) (*Configuration, *viper.Viper) {
	t.Helper()
	v := viper.New()
	SetupViper(v, "")
	cfg, err := New(v)
	require.NoError(t, err, "Setting up config with defaults should work")
	return cfg, v
}

func TestDefaults(t *testing.T) {
	cfg, _ := newDefaultConfig(t)

	cmpInts(t, "port", cfg.Port, 8000)
	cmpInts(t, "admin_port", cfg.AdminPort, 6060)
	cmpBools(t, "enable_gzip", cfg.EnableGzip, false)
	cmpInts(t, "gate.fallback_countdown_seconds", cfg.Gate.FallbackCountdownSeconds, 5)
	cmpInts(t, "gate.direct_link_countdown_seconds", cfg.Gate.DirectLinkCountdownSeconds, 3)
	cmpInts(t, "gate.tick_interval_ms", cfg.Gate.TickIntervalMs, 1000)
	cmpInts(t, "gate.session_ttl_seconds", cfg.Gate.SessionTTLSeconds, 900)
	cmpBools(t, "gate.trust_forwarded_for", cfg.Gate.TrustForwardedFor, false)
	cmpInts(t, "analytics.buffer_size", cfg.Analytics.BufferSize, 1024)
	cmpBools(t, "analytics.http.enabled", cfg.Analytics.HTTP.Enabled, false)
	cmpStrings(t, "metrics.influxdb.measurement", cfg.Metrics.Influxdb.Measurement, "download_gate")
	cmpInts(t, "metrics.prometheus.port", cfg.Metrics.Prometheus.Port, 0)
	assert.Empty(t, cfg.Providers)
	assert.Equal(t, time.Second, cfg.Gate.TickInterval())
}

func TestFullConfig(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(fullConfig)))

	cfg, err := New(v)
	require.NoError(t, err, "Setting up config should work but it doesn't")

	cmpStrings(t, "host", cfg.Host, "127.0.0.1")
	cmpInts(t, "port", cfg.Port, 9000)
	cmpBools(t, "enable_gzip", cfg.EnableGzip, true)
	cmpInts(t, "gate.fallback_countdown_seconds", cfg.Gate.FallbackCountdownSeconds, 7)
	cmpInts(t, "gate.direct_link_countdown_seconds", cfg.Gate.DirectLinkCountdownSeconds, 2)
	assert.Equal(t, 500*time.Millisecond, cfg.Gate.TickInterval())
	assert.Equal(t, 2.5, cfg.Gate.CreateRateLimit)

	require.Len(t, cfg.Providers, 3)
	assert.Equal(t, []string{"adsterra", "monetag", "hilltop"}, cfg.Providers.IDs(), "registry order must be preserved")

	adsterra := cfg.Providers[0]
	cmpStrings(t, "providers[0].name", adsterra.DisplayName(), "Adsterra Popunder")
	assert.Equal(t, ads.FormatPopunder, adsterra.Format)
	assert.Equal(t, ads.StrategyScriptInject, adsterra.LoadStrategy, "strategy defaults from the format")
	assert.Equal(t, 1500*time.Millisecond, adsterra.Timeout())
	cmpStrings(t, "providers[0].credentials.script_url", adsterra.Credential(CredentialScriptURL), "//pl.example-adsterra.com/ab/cd/ef.js")

	monetag := cfg.Providers[1]
	assert.Equal(t, ads.StrategyInlineTag, monetag.LoadStrategy)
	cmpStrings(t, "providers[1].credentials.zone_id", monetag.Credential(CredentialZoneID), "9001")
	cmpStrings(t, "providers[1].display name", monetag.DisplayName(), "monetag")

	hilltop := cfg.Providers[2]
	cmpBools(t, "providers[2].enabled", hilltop.Enabled, false)
	cmpBools(t, "providers[2].auto_close_on_ready", hilltop.AutoCloseOnReady, true)
	assert.Equal(t, ads.StrategyRedirectOnClick, hilltop.LoadStrategy)

	assert.Equal(t, []string{"adsterra", "monetag"}, cfg.Providers.Enabled().IDs())

	cmpStrings(t, "analytics.file.filename", cfg.Analytics.File.Filename, "/var/log/gate-telemetry.log")
	cmpStrings(t, "analytics.http.endpoint", cfg.Analytics.HTTP.Endpoint, "https://collector.example.com/intake")
	assert.Equal(t, int64(50), cfg.Analytics.HTTP.MaxEvents)
	cmpStrings(t, "metrics.influxdb.host", cfg.Metrics.Influxdb.Host, "http://influx:8086")
	cmpInts(t, "metrics.influxdb.collection_rate_seconds", cfg.Metrics.Influxdb.MetricSendInterval, 20)
	cmpStrings(t, "metrics.prometheus.namespace", cfg.Metrics.Prometheus.Namespace, "dl")
}

func TestDisabledProvidersFromEnv(t *testing.T) {
	t.Setenv("DLGATE_DISABLED_PROVIDERS", "adsterra")

	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(fullConfig)))

	cfg, err := New(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"monetag", "hilltop"}, cfg.Providers.Enabled().IDs())
}

func TestValidateReturnsAggregateErrors(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.Set("gate.tick_interval_ms", 0)
	v.Set("admin_port", 8000)

	_, err := New(v)
	require.Error(t, err)

	var agg errortypes.AggregateErrors
	require.True(t, errors.As(err, &agg))
	assert.Len(t, agg.Errors, 2)
}

func TestProviderValidate(t *testing.T) {
	testCases := []struct {
		desc      string
		provider  Provider
		expErrors int
	}{
		{
			desc:     "valid script inject",
			provider: Provider{ID: "a", Format: ads.FormatPopunder, LoadStrategy: ads.StrategyScriptInject, TimeoutMs: 100, Credentials: map[string]string{CredentialScriptURL: "https://a.example.com/s.js"}},
		},
		{
			desc:      "script inject without script",
			provider:  Provider{ID: "a", Format: ads.FormatPopunder, LoadStrategy: ads.StrategyScriptInject, TimeoutMs: 100},
			expErrors: 1,
		},
		{
			desc:     "valid inline tag with html",
			provider: Provider{ID: "a", Format: ads.FormatInPagePush, LoadStrategy: ads.StrategyInlineTag, TimeoutMs: 100, Credentials: map[string]string{CredentialContainerID: "c", CredentialTagHTML: "<div></div>"}},
		},
		{
			desc:      "inline tag without container or content",
			provider:  Provider{ID: "a", Format: ads.FormatInPagePush, LoadStrategy: ads.StrategyInlineTag, TimeoutMs: 100},
			expErrors: 2,
		},
		{
			desc:      "redirect with bad url",
			provider:  Provider{ID: "a", Format: ads.FormatVignette, LoadStrategy: ads.StrategyRedirectOnClick, TimeoutMs: 100, Credentials: map[string]string{CredentialRedirectURL: "nope nope"}},
			expErrors: 1,
		},
		{
			desc:     "direct link needs no credentials",
			provider: Provider{ID: "a", Format: ads.FormatDirectLink, LoadStrategy: ads.StrategyRedirectOnClick, TimeoutMs: 100},
		},
		{
			desc:      "unknown format, strategy, timeout and countdown",
			provider:  Provider{ID: "a", Format: "BANNER", LoadStrategy: "IFRAME", TimeoutMs: 0, CountdownSeconds: -1},
			expErrors: 4,
		},
	}
	for _, test := range testCases {
		errs := test.provider.validate(0, nil)
		assert.Len(t, errs, test.expErrors, "Desc: %s errs = %v", test.desc, errs)
	}
}

func TestProviderRegistryValidateIDs(t *testing.T) {
	p := Provider{Format: ads.FormatDirectLink, LoadStrategy: ads.StrategyRedirectOnClick, TimeoutMs: 100}
	a, dup, missing := p, p, p
	a.ID, dup.ID = "a", "a"

	errs := ProviderRegistry{a, dup, missing}.validate(nil)
	assert.Len(t, errs, 2)
}

func TestValidateDisabledProvidersUnknownID(t *testing.T) {
	errs := validateDisabledProviders([]string{"ghost"}, ProviderRegistry{{ID: "a"}}, nil)
	require.Len(t, errs, 1)
	assert.True(t, errortypes.IsWarning(errs[0]))
	assert.Equal(t, errortypes.DisabledProviderWarningCode, errortypes.ReadCode(errs[0]))
}

func TestUnknownDisabledProviderIsOnlyAWarning(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(fullConfig)))
	v.Set("disabled_providers", []string{"ghost"})

	cfg, err := New(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"adsterra", "monetag", "hilltop"}, cfg.Providers.Enabled().IDs())
}

func TestWarningsAreNotReportedWithFatalErrors(t *testing.T) {
	v := viper.New()
	SetupViper(v, "")
	v.Set("disabled_providers", []string{"ghost"})
	v.Set("admin_port", 8000)

	_, err := New(v)
	require.Error(t, err)

	var agg errortypes.AggregateErrors
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 1)
	assert.NotContains(t, err.Error(), "ghost")
}
