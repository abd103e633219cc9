package config

import (
	"fmt"
	"strings"
	"time"

	validator "github.com/asaskevich/govalidator"
	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/errortypes"
)

// Credential keys understood by the provider loaders.
const (
	CredentialScriptURL   = "script_url"
	CredentialZoneID      = "zone_id"
	CredentialContainerID = "container_id"
	CredentialTagHTML     = "tag_html"
	CredentialRedirectURL = "redirect_url"
	CredentialDirectURL   = "direct_url"
)

// Provider describes one ad-serving provider. It is immutable once the server has started.
type Provider struct {
	ID               string            `mapstructure:"id" json:"id"`
	Name             string            `mapstructure:"name" json:"name,omitempty"`
	Enabled          bool              `mapstructure:"enabled" json:"enabled"`
	Priority         int               `mapstructure:"priority" json:"priority"`
	Format           ads.Format        `mapstructure:"format" json:"format"`
	LoadStrategy     ads.LoadStrategy  `mapstructure:"load_strategy" json:"load_strategy"`
	TimeoutMs        int               `mapstructure:"timeout_ms" json:"timeout_ms"`
	CountdownSeconds int               `mapstructure:"countdown_seconds" json:"countdown_seconds"`
	Closable         bool              `mapstructure:"closable" json:"closable"`
	AutoCloseOnReady bool              `mapstructure:"auto_close_on_ready" json:"auto_close_on_ready"`
	Credentials      map[string]string `mapstructure:"credentials" json:"-"`
}

func (p *Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Credential returns the trimmed credential value for key, or "".
func (p *Provider) Credential(key string) string {
	return strings.TrimSpace(p.Credentials[key])
}

// DisplayName falls back to the id when no name is configured.
func (p *Provider) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func (p *Provider) validate(index int, errs []error) []error {
	prefix := fmt.Sprintf("providers[%d]", index)
	if p.ID != "" {
		prefix = fmt.Sprintf("providers[%d] (%s)", index, p.ID)
	}

	if !p.Format.Valid() {
		errs = append(errs, fmt.Errorf("%s.format %q is invalid", prefix, p.Format))
	}
	if !p.LoadStrategy.Valid() {
		errs = append(errs, fmt.Errorf("%s.load_strategy %q is invalid", prefix, p.LoadStrategy))
	}
	if p.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout_ms must be positive. Got %d", prefix, p.TimeoutMs))
	}
	if p.CountdownSeconds < 0 {
		errs = append(errs, fmt.Errorf("%s.countdown_seconds must be >= 0. Got %d", prefix, p.CountdownSeconds))
	}

	if p.Format == ads.FormatDirectLink {
		if u := p.Credential(CredentialDirectURL); u != "" && !isValidURL(u) {
			errs = append(errs, fmt.Errorf("%s.credentials.%s is not a valid url", prefix, CredentialDirectURL))
		}
		return errs
	}

	switch p.LoadStrategy {
	case ads.StrategyScriptInject:
		if !isValidURL(p.Credential(CredentialScriptURL)) {
			errs = append(errs, fmt.Errorf("%s.credentials.%s must be a valid url for %s", prefix, CredentialScriptURL, p.LoadStrategy))
		}
	case ads.StrategyInlineTag:
		if p.Credential(CredentialContainerID) == "" {
			errs = append(errs, fmt.Errorf("%s.credentials.%s is required for %s", prefix, CredentialContainerID, p.LoadStrategy))
		}
		script := p.Credential(CredentialScriptURL)
		if p.Credential(CredentialTagHTML) == "" && script == "" {
			errs = append(errs, fmt.Errorf("%s.credentials needs %s or %s for %s", prefix, CredentialTagHTML, CredentialScriptURL, p.LoadStrategy))
		}
		if script != "" && !isValidURL(script) {
			errs = append(errs, fmt.Errorf("%s.credentials.%s is not a valid url", prefix, CredentialScriptURL))
		}
	case ads.StrategyRedirectOnClick:
		if !isValidURL(p.Credential(CredentialRedirectURL)) {
			errs = append(errs, fmt.Errorf("%s.credentials.%s must be a valid url for %s", prefix, CredentialRedirectURL, p.LoadStrategy))
		}
	}
	return errs
}

// ProviderRegistry is the configured list of providers in registry order.
type ProviderRegistry []Provider

// Get returns the provider with the given id.
func (r ProviderRegistry) Get(id string) (Provider, bool) {
	for _, p := range r {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Enabled returns the enabled providers, preserving registry order.
func (r ProviderRegistry) Enabled() ProviderRegistry {
	enabled := make(ProviderRegistry, 0, len(r))
	for _, p := range r {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// IDs returns the provider ids in registry order.
func (r ProviderRegistry) IDs() []string {
	ids := make([]string, len(r))
	for i, p := range r {
		ids[i] = p.ID
	}
	return ids
}

func (r ProviderRegistry) withDefaults() ProviderRegistry {
	out := make(ProviderRegistry, len(r))
	for i, p := range r {
		p.ID = strings.TrimSpace(p.ID)
		if p.LoadStrategy == "" {
			p.LoadStrategy = p.Format.DefaultStrategy()
		}
		if p.Format == ads.FormatDirectLink {
			p.AutoCloseOnReady = true
		}
		out[i] = p
	}
	return out
}

func (r ProviderRegistry) disable(ids []string) ProviderRegistry {
	if len(ids) == 0 {
		return r
	}
	disabled := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		disabled[strings.TrimSpace(id)] = struct{}{}
	}
	for i := range r {
		if _, ok := disabled[r[i].ID]; ok {
			r[i].Enabled = false
		}
	}
	return r
}

func (r ProviderRegistry) validate(errs []error) []error {
	seen := make(map[string]int, len(r))
	for i := range r {
		p := &r[i]
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("providers[%d].id is required", i))
		} else if first, ok := seen[p.ID]; ok {
			errs = append(errs, fmt.Errorf("providers[%d].id %q duplicates providers[%d]", i, p.ID, first))
		} else {
			seen[p.ID] = i
		}
		errs = p.validate(i, errs)
	}
	return errs
}

func validateDisabledProviders(ids []string, registry ProviderRegistry, errs []error) []error {
	for _, id := range ids {
		if _, ok := registry.Get(strings.TrimSpace(id)); !ok {
			errs = append(errs, &errortypes.Warning{
				Message:     fmt.Sprintf("disabled_providers contains unknown provider %q", id),
				WarningCode: errortypes.DisabledProviderWarningCode,
			})
		}
	}
	return errs
}

// isValidURL accepts absolute and protocol-relative ("//host/path") urls, which ad tags commonly use.
func isValidURL(u string) bool {
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return validator.IsURL(u) && validator.IsRequestURL(u)
}
