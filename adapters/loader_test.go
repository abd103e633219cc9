package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptProvider(id, src string) config.Provider {
	return config.Provider{
		ID:               id,
		Enabled:          true,
		Format:           ads.FormatPopunder,
		LoadStrategy:     ads.StrategyScriptInject,
		TimeoutMs:        500,
		CountdownSeconds: 10,
		Closable:         true,
		Credentials: map[string]string{
			config.CredentialScriptURL: src,
			config.CredentialZoneID:    "42",
		},
	}
}

func withStrategy(s Strategy) *ProviderLoader {
	l, _ := NewProviderLoader(map[ads.LoadStrategy]Strategy{
		ads.StrategyScriptInject:    s,
		ads.StrategyInlineTag:       s,
		ads.StrategyRedirectOnClick: s,
	}, 3)
	return l
}

func TestNewProviderLoaderNeedsEveryStrategy(t *testing.T) {
	_, err := NewProviderLoader(map[ads.LoadStrategy]Strategy{
		ads.StrategyScriptInject: &ScriptInjectStrategy{},
	}, 3)
	assert.Error(t, err)
}

func TestScriptInjectSuccess(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("/* tag */"))
	}))
	defer server.Close()

	loader := NewDefaultProviderLoader(NewHTTPProber(server.Client()), 3)
	doc := render.NewDocument()
	provider := scriptProvider("adsterra", server.URL+"/tag.js")

	outcome := loader.AttemptLoad(context.Background(), provider, doc)
	require.True(t, outcome.Success, "unexpected failure: %v", outcome.Err)
	assert.Equal(t, "adsterra", outcome.Advertisement.ProviderID)
	assert.NotEmpty(t, outcome.Advertisement.ID)
	assert.Equal(t, 10, outcome.Advertisement.Settings.CountdownSeconds)
	assert.True(t, outcome.Advertisement.Settings.Closable)

	view := doc.View()
	require.Len(t, view.Scripts, 1)
	assert.Equal(t, "42", view.Scripts[0].Attrs["data-zone"])

	again := loader.AttemptLoad(context.Background(), provider, doc)
	require.True(t, again.Success)
	assert.NotEqual(t, outcome.Advertisement.ID, again.Advertisement.ID, "every load produces a fresh advertisement")
	assert.Len(t, doc.View().Scripts, 1, "a script already on the surface must not be injected twice")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "a script already on the surface must not be probed again")
}

func TestScriptInjectBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	loader := NewDefaultProviderLoader(NewHTTPProber(server.Client()), 3)
	doc := render.NewDocument()

	outcome := loader.AttemptLoad(context.Background(), scriptProvider("a", server.URL+"/missing.js"), doc)
	assert.False(t, outcome.Success)
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
	assert.Empty(t, doc.View().Scripts)
}

func TestScriptInjectSlowServerTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	loader := NewDefaultProviderLoader(NewHTTPProber(server.Client()), 3)
	provider := scriptProvider("slow", server.URL+"/tag.js")
	provider.TimeoutMs = 30

	outcome := loader.AttemptLoad(context.Background(), provider, render.NewDocument())
	assert.False(t, outcome.Success)
	assert.Equal(t, errortypes.KindTimeout, outcome.Reason)
}

func TestAttemptLoadTimeout(t *testing.T) {
	loader := withStrategy(StrategyFunc(func(ctx context.Context, p config.Provider, s RenderTarget) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	provider := scriptProvider("a", "https://a.example.com/tag.js")
	provider.TimeoutMs = 20

	start := time.Now()
	outcome := loader.AttemptLoad(context.Background(), provider, render.NewDocument())
	assert.False(t, outcome.Success)
	assert.Equal(t, errortypes.KindTimeout, outcome.Reason)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLateWritesAreDiscarded(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	loader := withStrategy(StrategyFunc(func(ctx context.Context, p config.Provider, s RenderTarget) error {
		defer close(finished)
		<-release
		s.InjectScript("late.js", nil)
		s.MountInline(render.Inline{ContainerID: "late", HTML: "x"})
		s.BindClickRedirect("https://late.example.com")
		return nil
	}))
	provider := scriptProvider("a", "https://a.example.com/tag.js")
	provider.TimeoutMs = 10
	doc := render.NewDocument()

	outcome := loader.AttemptLoad(context.Background(), provider, doc)
	require.Equal(t, errortypes.KindTimeout, outcome.Reason)

	close(release)
	<-finished

	view := doc.View()
	assert.Empty(t, view.Scripts)
	assert.Empty(t, view.Inlines)
	assert.Nil(t, view.ClickRedirect)
}

func TestAttemptLoadRecoversPanics(t *testing.T) {
	loader := withStrategy(StrategyFunc(func(ctx context.Context, p config.Provider, s RenderTarget) error {
		panic("boom")
	}))

	outcome := loader.AttemptLoad(context.Background(), scriptProvider("a", "https://a.example.com/tag.js"), render.NewDocument())
	assert.False(t, outcome.Success)
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
	assert.Contains(t, outcome.Err.Error(), "boom")
}

func TestAttemptLoadNilSurfacePanicIsRecovered(t *testing.T) {
	loader := NewDefaultProviderLoader(nil, 3)
	provider := config.Provider{
		ID:           "inline",
		Format:       ads.FormatInPagePush,
		LoadStrategy: ads.StrategyInlineTag,
		TimeoutMs:    100,
		Credentials:  map[string]string{config.CredentialContainerID: "slot", config.CredentialTagHTML: "<div/>"},
	}

	outcome := loader.AttemptLoad(context.Background(), provider, nil)
	assert.False(t, outcome.Success)
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
}

func TestAttemptLoadCancelledContext(t *testing.T) {
	loader := withStrategy(StrategyFunc(func(ctx context.Context, p config.Provider, s RenderTarget) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := loader.AttemptLoad(ctx, scriptProvider("a", "https://a.example.com/tag.js"), render.NewDocument())
	assert.False(t, outcome.Success)
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
}

func TestDirectLinkShortCircuits(t *testing.T) {
	loader := withStrategy(StrategyFunc(func(ctx context.Context, p config.Provider, s RenderTarget) error {
		t.Fatal("direct links must not run a load strategy")
		return nil
	}))
	provider := config.Provider{
		ID:               "hilltop",
		Format:           ads.FormatDirectLink,
		LoadStrategy:     ads.StrategyRedirectOnClick,
		TimeoutMs:        100,
		CountdownSeconds: 30,
		Closable:         true,
		Credentials:      map[string]string{config.CredentialDirectURL: "https://hilltop.example.com/go"},
	}

	outcome := loader.AttemptLoad(context.Background(), provider, render.NewDocument())
	require.True(t, outcome.Success)
	ad := outcome.Advertisement
	assert.Equal(t, ads.FormatDirectLink, ad.Format)
	assert.True(t, ad.Settings.AutoCloseOnReady)
	assert.False(t, ad.Settings.Closable)
	assert.Equal(t, 3, ad.Settings.CountdownSeconds)
	assert.Equal(t, "https://hilltop.example.com/go", ad.ClickURL)
	assert.False(t, ad.Skippable())
}

func TestInlineTagStrategy(t *testing.T) {
	loader := NewDefaultProviderLoader(nil, 3)
	doc := render.NewDocument()
	provider := config.Provider{
		ID:           "monetag",
		Format:       ads.FormatInPagePush,
		LoadStrategy: ads.StrategyInlineTag,
		TimeoutMs:    100,
		Credentials: map[string]string{
			config.CredentialContainerID: "ipp",
			config.CredentialScriptURL:   "https://monetag.example.com/tag.min.js",
		},
	}

	outcome := loader.AttemptLoad(context.Background(), provider, doc)
	require.True(t, outcome.Success)
	view := doc.View()
	require.Len(t, view.Inlines, 1)
	assert.Equal(t, "ipp", view.Inlines[0].ContainerID)
	assert.Equal(t, "https://monetag.example.com/tag.min.js", view.Inlines[0].ScriptSrc)

	delete(provider.Credentials, config.CredentialContainerID)
	outcome = loader.AttemptLoad(context.Background(), provider, doc)
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
}

func TestRedirectOnClickStrategy(t *testing.T) {
	loader := NewDefaultProviderLoader(nil, 3)
	doc := render.NewDocument()
	provider := config.Provider{
		ID:           "vignette",
		Format:       ads.FormatVignette,
		LoadStrategy: ads.StrategyRedirectOnClick,
		TimeoutMs:    100,
		Credentials:  map[string]string{config.CredentialRedirectURL: "https://ads.example.com/click?z=7"},
	}

	outcome := loader.AttemptLoad(context.Background(), provider, doc)
	require.True(t, outcome.Success)
	assert.Equal(t, "https://ads.example.com/click?z=7", outcome.Advertisement.ClickURL)
	require.NotNil(t, doc.View().ClickRedirect)
	assert.Equal(t, "https://ads.example.com/click?z=7", doc.View().ClickRedirect.URL)

	provider.Credentials[config.CredentialRedirectURL] = "not a url"
	outcome = loader.AttemptLoad(context.Background(), provider, render.NewDocument())
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
}

func TestUnknownStrategy(t *testing.T) {
	loader := NewDefaultProviderLoader(nil, 3)
	provider := scriptProvider("a", "https://a.example.com/tag.js")
	provider.LoadStrategy = "IFRAME"

	outcome := loader.AttemptLoad(context.Background(), provider, render.NewDocument())
	assert.Equal(t, errortypes.KindLoadFailure, outcome.Reason)
}
