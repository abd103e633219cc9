package adapters

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/logger"
	"github.com/dlgate/download-gate/render"
	"github.com/gofrs/uuid"
)

// RenderTarget is the surface a provider's creative is placed on. Implementations must be safe
// for concurrent use.
type RenderTarget interface {
	HasScript(src string) bool
	// InjectScript adds a script tag unless one with the same src exists. It reports whether it added one.
	InjectScript(src string, attrs map[string]string) bool
	// MountInline places el in its container, replacing the container's previous content.
	MountInline(el render.Inline)
	BindClickRedirect(url string)
}

// LoadOutcome is the result of a single provider load attempt.
//
// On success Advertisement is set. On failure Reason is TIMEOUT or LOAD_FAILURE and Err explains why.
type LoadOutcome struct {
	Success       bool
	Advertisement *ads.Advertisement
	Reason        errortypes.Kind
	Err           error
}

// Loader attempts to load one provider's creative onto a surface.
//
// AttemptLoad never panics. Any failure is reported through the outcome.
type Loader interface {
	AttemptLoad(ctx context.Context, provider config.Provider, surface RenderTarget) LoadOutcome
}

// Strategy places a provider's creative on the surface. It must honor ctx.
type Strategy interface {
	Load(ctx context.Context, provider config.Provider, surface RenderTarget) error
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, provider config.Provider, surface RenderTarget) error

func (f StrategyFunc) Load(ctx context.Context, provider config.Provider, surface RenderTarget) error {
	return f(ctx, provider, surface)
}

// ProviderLoader is the Loader used by the server. It dispatches on the provider's load strategy.
type ProviderLoader struct {
	strategies          map[ads.LoadStrategy]Strategy
	directLinkCountdown int
}

// NewProviderLoader builds a loader with one Strategy per load strategy. Every LoadStrategy must
// be covered.
func NewProviderLoader(strategies map[ads.LoadStrategy]Strategy, directLinkCountdown int) (*ProviderLoader, error) {
	for _, s := range ads.LoadStrategies() {
		if strategies[s] == nil {
			return nil, fmt.Errorf("no loader registered for load strategy %s", s)
		}
	}
	return &ProviderLoader{
		strategies:          strategies,
		directLinkCountdown: directLinkCountdown,
	}, nil
}

// NewDefaultProviderLoader wires the built-in strategies.
func NewDefaultProviderLoader(prober *HTTPProber, directLinkCountdown int) *ProviderLoader {
	l, _ := NewProviderLoader(map[ads.LoadStrategy]Strategy{
		ads.StrategyScriptInject:    &ScriptInjectStrategy{Prober: prober},
		ads.StrategyInlineTag:       StrategyFunc(loadInlineTag),
		ads.StrategyRedirectOnClick: StrategyFunc(bindRedirect),
	}, directLinkCountdown)
	return l
}

func (l *ProviderLoader) AttemptLoad(ctx context.Context, provider config.Provider, surface RenderTarget) (outcome LoadOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("provider %s panicked while loading: %v\n%s", provider.ID, r, debug.Stack())
			outcome = failed(&errortypes.LoadFailure{Message: fmt.Sprintf("provider %s: %v", provider.ID, r)})
		}
	}()

	if provider.Format == ads.FormatDirectLink {
		return l.loadDirectLink(provider)
	}

	strategy, ok := l.strategies[provider.LoadStrategy]
	if !ok {
		return failed(&errortypes.LoadFailure{Message: fmt.Sprintf("provider %s: unsupported load strategy %q", provider.ID, provider.LoadStrategy)})
	}

	ctx, cancel := context.WithTimeout(ctx, provider.Timeout())
	defer cancel()

	// Writes that land after the attempt is over are discarded.
	guarded := newGuardedTarget(surface)
	defer guarded.close()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &errortypes.LoadFailure{Message: fmt.Sprintf("provider %s: %v", provider.ID, r)}
			}
		}()
		done <- strategy.Load(ctx, provider, guarded)
	}()

	select {
	case err := <-done:
		if err != nil {
			return failed(classify(ctx, provider, err))
		}
		ad := newAdvertisement(provider)
		if provider.LoadStrategy == ads.StrategyRedirectOnClick {
			ad.ClickURL = provider.Credential(config.CredentialRedirectURL)
		}
		return LoadOutcome{Success: true, Advertisement: ad}
	case <-ctx.Done():
		return failed(classify(ctx, provider, ctx.Err()))
	}
}

func (l *ProviderLoader) loadDirectLink(provider config.Provider) LoadOutcome {
	ad := newAdvertisement(provider)
	ad.Settings = ads.Settings{
		CountdownSeconds: l.directLinkCountdown,
		Closable:         false,
		AutoCloseOnReady: true,
	}
	ad.ClickURL = provider.Credential(config.CredentialDirectURL)
	return LoadOutcome{Success: true, Advertisement: ad}
}

func newAdvertisement(provider config.Provider) *ads.Advertisement {
	return &ads.Advertisement{
		ID:         uuid.Must(uuid.NewV4()).String(),
		Name:       provider.DisplayName(),
		ProviderID: provider.ID,
		Format:     provider.Format,
		Settings: ads.Settings{
			CountdownSeconds: provider.CountdownSeconds,
			Closable:         provider.Closable,
			AutoCloseOnReady: provider.AutoCloseOnReady,
		},
		Priority: provider.Priority,
	}
}

// classify turns a strategy error into a TIMEOUT or LOAD_FAILURE error.
func classify(ctx context.Context, provider config.Provider, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &errortypes.Timeout{Message: fmt.Sprintf("provider %s did not load within %s", provider.ID, provider.Timeout())}
	}
	if k := errortypes.ReadKind(err); k == errortypes.KindTimeout || k == errortypes.KindLoadFailure {
		return err
	}
	return &errortypes.LoadFailure{Message: fmt.Sprintf("provider %s: %v", provider.ID, err)}
}

func failed(err error) LoadOutcome {
	return LoadOutcome{
		Success: false,
		Reason:  errortypes.ReadKind(err),
		Err:     err,
	}
}
