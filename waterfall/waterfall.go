package waterfall

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dlgate/download-gate/adapters"
	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/logger"
	"github.com/dlgate/download-gate/metrics"
)

// Attempt records one provider load made during a pass.
type Attempt struct {
	ProviderID string
	Success    bool
	Reason     errortypes.Kind
	// Code is the errortypes code of Err, 0 on success.
	Code     int
	Err      error
	Duration time.Duration
}

// Result is the outcome of one waterfall pass.
type Result struct {
	Success       bool
	ProviderID    string
	Advertisement *ads.Advertisement
	// Reason is ALL_PROVIDERS_EXHAUSTED when the pass failed.
	Reason   errortypes.Kind
	Attempts []Attempt
	// Excluded is the caller's exclusion list followed by every provider attempted in this pass,
	// in attempt order. On success the winning provider is last.
	Excluded []string
	// NoEligibleProviders is true when nothing was attempted because no provider was eligible.
	NoEligibleProviders bool
}

// Runner runs waterfall passes. The gate depends on this rather than on Waterfall directly.
type Runner interface {
	Run(ctx context.Context, excluded []string, surface adapters.RenderTarget) Result
}

// Waterfall tries providers one at a time, in priority order, until one loads.
type Waterfall struct {
	providers config.ProviderRegistry
	loader    adapters.Loader
	metrics   metrics.MetricsEngine
}

func New(providers config.ProviderRegistry, loader adapters.Loader, me metrics.MetricsEngine) *Waterfall {
	return &Waterfall{
		providers: providers,
		loader:    loader,
		metrics:   me,
	}
}

// Eligible returns the enabled providers not in excluded, sorted ascending by priority. Providers
// with equal priority keep their registry order.
func Eligible(providers config.ProviderRegistry, excluded []string) []config.Provider {
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	eligible := make([]config.Provider, 0, len(providers))
	for _, p := range providers {
		if !p.Enabled {
			continue
		}
		if _, ok := skip[p.ID]; ok {
			continue
		}
		// Registry ids are unique once validated. This keeps a pass from repeating a provider regardless.
		skip[p.ID] = struct{}{}
		eligible = append(eligible, p)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority < eligible[j].Priority
	})
	return eligible
}

// Run makes one pass. Attempts are strictly sequential: the next provider is never tried before
// the previous attempt resolved. A cancelled ctx ends the pass before the next attempt.
func (w *Waterfall) Run(ctx context.Context, excluded []string, surface adapters.RenderTarget) Result {
	eligible := Eligible(w.providers, excluded)

	result := Result{
		Excluded: append(make([]string, 0, len(excluded)+len(eligible)), excluded...),
		Attempts: make([]Attempt, 0, len(eligible)),
	}
	if len(eligible) == 0 {
		result.Reason = errortypes.KindAllProvidersExhausted
		result.NoEligibleProviders = true
		w.metrics.RecordWaterfall(metrics.WaterfallNoProviders)
		return result
	}

	for _, provider := range eligible {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		outcome := w.loader.AttemptLoad(ctx, provider, surface)
		elapsed := time.Since(start)

		attempt := Attempt{
			ProviderID: provider.ID,
			Success:    outcome.Success,
			Reason:     outcome.Reason,
			Err:        outcome.Err,
			Duration:   elapsed,
		}
		if outcome.Err != nil {
			attempt.Code = errortypes.ReadCode(outcome.Err)
		}
		result.Excluded = append(result.Excluded, provider.ID)
		result.Attempts = append(result.Attempts, attempt)
		w.metrics.RecordProviderLoad(provider.ID, loadOutcome(outcome), elapsed)

		if outcome.Success && outcome.Advertisement != nil {
			result.Success = true
			result.ProviderID = provider.ID
			result.Advertisement = outcome.Advertisement
			w.metrics.RecordWaterfall(metrics.WaterfallFilled)
			return result
		}
		if errortypes.IsWarning(outcome.Err) {
			logger.Debugf("provider %s failed to load (%s, code %d): %v", provider.ID, outcome.Reason, attempt.Code, outcome.Err)
		} else {
			logger.Warnf("provider %s failed to load (%s, code %d): %v", provider.ID, outcome.Reason, attempt.Code, outcome.Err)
		}
	}

	result.Reason = errortypes.KindAllProvidersExhausted
	w.metrics.RecordWaterfall(metrics.WaterfallExhausted)
	return result
}

// Err describes a failed pass. It returns nil for a successful one.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.NoEligibleProviders {
		return &errortypes.AllProvidersExhausted{Message: "no eligible providers"}
	}
	return &errortypes.AllProvidersExhausted{Message: fmt.Sprintf("all %d eligible providers failed to load", len(r.Attempts))}
}

func loadOutcome(o adapters.LoadOutcome) metrics.LoadOutcome {
	switch {
	case o.Success:
		return metrics.LoadOutcomeSuccess
	case o.Reason == errortypes.KindTimeout:
		return metrics.LoadOutcomeTimeout
	default:
		return metrics.LoadOutcomeFailure
	}
}
