package router

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/dlgate/download-gate/adapters"
	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/analytics"
	analyticsBuild "github.com/dlgate/download-gate/analytics/build"
	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/endpoints"
	"github.com/dlgate/download-gate/gate"
	metricsConf "github.com/dlgate/download-gate/metrics/config"
	"github.com/dlgate/download-gate/server/ssl"
	"github.com/dlgate/download-gate/sessions"
	"github.com/dlgate/download-gate/waterfall"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	Sessions      *sessions.Store
	Shutdown      func()
}

func getTransport(cfg *config.Configuration, certPool *x509.CertPool) *http.Transport {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		MaxConnsPerHost: cfg.HTTPClient.MaxConnsPerHost,
		IdleConnTimeout: time.Duration(cfg.HTTPClient.IdleConnTimeout) * time.Second,
		TLSClientConfig: &tls.Config{RootCAs: certPool},
	}

	if cfg.HTTPClient.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.HTTPClient.MaxIdleConns
	}

	if cfg.HTTPClient.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.HTTPClient.MaxIdleConnsPerHost
	}

	return transport
}

// deps are the long-lived components shared by every gate.
type deps struct {
	runner   waterfall.Runner
	reporter analytics.Reporter
	metrics  *metricsConf.DetailedMetricsEngine
	env      gate.Env
	tick     time.Duration
	clock    clock.Clock
}

func (d deps) newGate(download *ads.PendingDownload) *gate.DownloadGate {
	return gate.New(download, d.runner, d.env,
		gate.WithReporter(d.reporter),
		gate.WithMetrics(d.metrics),
		gate.WithClock(d.clock),
		gate.WithTickInterval(d.tick),
	)
}

func New(cfg *config.Configuration) (r *Router, err error) {
	r = &Router{
		Router: httprouter.New(),
	}

	// Creative probes and telemetry need both the system roots and any certificates shipped with the container.
	certPool := ssl.GetRootCAPool()
	var readCertErr error
	certPool, readCertErr = ssl.AppendPEMFileToRootCAPool(certPool, cfg.PemCertsFile)
	if readCertErr != nil {
		glog.Infof("Could not read certificates file: %s \n", readCertErr.Error())
	}

	generalHttpClient := &http.Client{
		Transport: getTransport(cfg, certPool),
	}

	providers := cfg.Providers.Enabled()
	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg, providers.IDs())

	wallClock := clock.New()
	loader := adapters.NewDefaultProviderLoader(adapters.NewHTTPProber(generalHttpClient), cfg.Gate.DirectLinkCountdownSeconds)
	reporter := analyticsBuild.NewReporter(&cfg.Analytics, generalHttpClient, wallClock, r.MetricsEngine)

	d := deps{
		runner:   waterfall.New(providers, loader, r.MetricsEngine),
		reporter: reporter,
		metrics:  r.MetricsEngine,
		env: gate.Env{
			FallbackCountdownSeconds: cfg.Gate.FallbackCountdownSeconds,
			AutoRevealFallback:       cfg.Gate.AutoRevealFallback,
		},
		tick:  cfg.Gate.TickInterval(),
		clock: wallClock,
	}

	r.Sessions = sessions.NewStore(cfg.Gate.SessionTTL(), cfg.Gate.SessionCleanupInterval())
	activeGates := sessions.NewActiveGatesTask(r.Sessions, r.MetricsEngine, time.Duration(cfg.Gate.ActiveGatesRefreshSeconds)*time.Second, wallClock)
	activeGates.Start()

	gates, err := endpoints.NewGateEndpoints(r.Sessions, d.newGate)
	if err != nil {
		return nil, err
	}

	r.Handler(http.MethodPost, "/gates", rateLimited(cfg.Gate.CreateRateLimit, cfg.Gate.TrustForwardedFor, gates.Create))
	r.GET("/gates/:id", gates.Get)
	r.GET("/gates/:id/surface", gates.Surface)
	r.POST("/gates/:id/skip", gates.Skip)
	r.POST("/gates/:id/retry", gates.Retry)
	r.POST("/gates/:id/continue", gates.Continue)
	r.POST("/gates/:id/reveal", gates.Reveal)
	r.DELETE("/gates/:id", gates.Delete)
	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))

	r.Shutdown = func() {
		activeGates.Stop()
		r.Sessions.Close()
		reporter.Shutdown()
	}
	return r, nil
}

// rateLimited limits how many gates one client IP may open per second. A limit of 0 turns it off.
// The client IP is the connection's peer address unless trustForwarded is set.
func rateLimited(perSecond float64, trustForwarded bool, handle httprouter.Handle) http.Handler {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle(w, r, httprouter.ParamsFromContext(r.Context()))
	})
	if perSecond <= 0 {
		return handler
	}

	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	if trustForwarded {
		lmt.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
	} else {
		lmt.SetIPLookups([]string{"RemoteAddr"})
	}
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(`{"error":"too many gates opened, try again shortly"}`)
	return tollbooth.LimitHandler(lmt, handler)
}

// Admin serves the operational endpoints on the admin port. providers are the enabled provider ids.
func Admin(revision string, version string, providers []string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/version", endpoints.NewVersionEndpoint(version, revision, providers))
	mux.Handle("/status", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	return mux
}

// The gate API is called from the catalog's own pages on other origins. Gates are addressed by the
// id in the path, so no credentials are allowed.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
