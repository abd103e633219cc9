package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/ads"
	"github.com/dlgate/download-gate/analytics"
	"github.com/dlgate/download-gate/logger"
	"github.com/dlgate/download-gate/metrics"
	metricsConf "github.com/dlgate/download-gate/metrics/config"
	"github.com/dlgate/download-gate/render"
	"github.com/dlgate/download-gate/waterfall"
	"github.com/gofrs/uuid"
)

// Observer receives every published snapshot, in order, on the gate's own goroutine.
// Observers must not call the gate's commands.
type Observer func(Snapshot)

type Option func(*DownloadGate)

func WithClock(c clock.Clock) Option {
	return func(g *DownloadGate) { g.clock = c }
}

func WithObserver(o Observer) Option {
	return func(g *DownloadGate) { g.observers = append(g.observers, o) }
}

func WithReporter(r analytics.Reporter) Option {
	return func(g *DownloadGate) { g.reporter = r }
}

func WithMetrics(me metrics.MetricsEngine) Option {
	return func(g *DownloadGate) { g.metrics = me }
}

func WithID(id string) Option {
	return func(g *DownloadGate) { g.id = id }
}

func WithTickInterval(d time.Duration) Option {
	return func(g *DownloadGate) { g.tickInterval = d }
}

// DownloadGate runs the lifecycle of a single gated download. All state changes happen on one
// goroutine; the exported methods hand it commands and wait for the outcome.
type DownloadGate struct {
	id           string
	env          Env
	runner       waterfall.Runner
	clock        clock.Clock
	tickInterval time.Duration
	reporter     analytics.Reporter
	metrics      metrics.MetricsEngine
	observers    []Observer
	surface      *render.Document

	commands chan command
	events   chan Event
	done     chan struct{}
	stopped  chan struct{}
	dispose  sync.Once
	ctx      context.Context
	cancel   context.CancelFunc

	// Owned by the loop goroutine.
	state      State
	ticker     *clock.Ticker
	cancelLoad context.CancelFunc

	mu        sync.RWMutex
	published Snapshot
	redirects chan RedirectEvent
}

type command struct {
	ev    Event
	reply chan outcome
}

type outcome struct {
	snapshot Snapshot
	redirect *RedirectEvent
	err      error
}

// New opens a gate for download. It does nothing until Start is called.
func New(download *ads.PendingDownload, runner waterfall.Runner, env Env, opts ...Option) *DownloadGate {
	g := &DownloadGate{
		env:          env,
		runner:       runner,
		clock:        clock.New(),
		tickInterval: time.Second,
		surface:      render.NewDocument(),
		commands:     make(chan command),
		events:       make(chan Event),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		redirects:    make(chan RedirectEvent, 1),
		state:        NewState(download),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.id == "" {
		g.id = uuid.Must(uuid.NewV4()).String()
	}
	if g.metrics == nil {
		g.metrics = &metricsConf.DummyMetricsEngine{}
	}
	if g.tickInterval <= 0 {
		g.tickInterval = time.Second
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.published = g.state.snapshot(g.id)

	g.metrics.RecordGateCreated()
	g.metrics.RecordPhase(string(g.state.Phase))
	go g.loop()
	return g
}

func (g *DownloadGate) ID() string {
	return g.id
}

// Surface is the document providers render their creatives into.
func (g *DownloadGate) Surface() *render.Document {
	return g.surface
}

// Snapshot returns the last published state. It keeps working after Dispose.
func (g *DownloadGate) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.published.clone()
}

// Redirects delivers the gate's single redirect event, whether it came from Reveal or from an
// automatic reveal.
func (g *DownloadGate) Redirects() <-chan RedirectEvent {
	return g.redirects
}

// Done is closed once the gate has been disposed and has released its ticker and loads.
func (g *DownloadGate) Done() <-chan struct{} {
	return g.stopped
}

func (g *DownloadGate) Start() (Snapshot, error) {
	o := g.send(Start{})
	return o.snapshot, o.err
}

func (g *DownloadGate) Skip() (Snapshot, error) {
	o := g.send(Skip{})
	return o.snapshot, o.err
}

func (g *DownloadGate) Retry() (Snapshot, error) {
	o := g.send(Retry{})
	return o.snapshot, o.err
}

func (g *DownloadGate) ContinueAnyway() (Snapshot, error) {
	o := g.send(ContinueAnyway{})
	return o.snapshot, o.err
}

// Reveal moves a READY gate to REDIRECTING and returns the redirect event.
func (g *DownloadGate) Reveal() (RedirectEvent, error) {
	o := g.send(Reveal{})
	if o.err != nil {
		return RedirectEvent{}, o.err
	}
	if o.redirect == nil {
		return RedirectEvent{}, ErrInvalidTransition
	}
	return *o.redirect, nil
}

// Dispose stops the gate. Loads in flight are cancelled, the countdown stops, and every later
// operation returns ErrDisposed. It is safe to call more than once and from any goroutine.
func (g *DownloadGate) Dispose() {
	g.dispose.Do(func() {
		close(g.done)
		g.cancel()
	})
}

func (g *DownloadGate) disposed() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

func (g *DownloadGate) send(ev Event) outcome {
	reply := make(chan outcome, 1)
	select {
	case g.commands <- command{ev: ev, reply: reply}:
	case <-g.done:
		return outcome{snapshot: g.Snapshot(), err: ErrDisposed}
	}
	return <-reply
}

// post hands an event from a background goroutine to the loop. It gives up once the gate is disposed.
func (g *DownloadGate) post(ev Event) {
	select {
	case g.events <- ev:
	case <-g.done:
	}
}

func (g *DownloadGate) loop() {
	defer close(g.stopped)
	for {
		var ticks <-chan time.Time
		if g.ticker != nil {
			ticks = g.ticker.C
		}

		select {
		case <-g.done:
			g.stopCountdown()
			g.abortLoad()
			return
		case cmd := <-g.commands:
			cmd.reply <- g.apply(cmd.ev)
		case ev := <-g.events:
			g.apply(ev)
		case <-ticks:
			g.apply(Tick{})
		}
	}
}

func (g *DownloadGate) apply(ev Event) outcome {
	if g.disposed() {
		return outcome{snapshot: g.Snapshot(), err: ErrDisposed}
	}

	prev := g.state
	next, effects, err := g.transition(ev)
	if err != nil {
		return outcome{snapshot: g.Snapshot(), err: err}
	}
	if next.Version == prev.Version {
		return outcome{snapshot: g.Snapshot()}
	}

	g.state = next
	if next.Phase != prev.Phase {
		g.metrics.RecordPhase(string(next.Phase))
	}

	var out outcome
	autoReveal := false
	if err := g.execute(effects, &out, &autoReveal); err != nil {
		logger.Errorf("gate %s: %v", g.id, err)
		if _, isFail := ev.(Fail); !isFail {
			return g.apply(Fail{Err: err})
		}
	}

	out.snapshot = g.publish()
	if autoReveal {
		revealed := g.apply(Reveal{})
		if revealed.err == nil {
			out.snapshot = revealed.snapshot
			out.redirect = revealed.redirect
		}
	}
	return out
}

// transition runs Transition, turning a panic into a processing error.
func (g *DownloadGate) transition(ev Event) (s State, effects []Effect, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("gate %s: panic handling %T: %v", g.id, ev, p)
			s, effects, err = Transition(g.state, Fail{Err: fmt.Errorf("panic handling %T: %v", ev, p)}, g.env)
		}
	}()
	return Transition(g.state, ev, g.env)
}

func (g *DownloadGate) execute(effects []Effect, out *outcome, autoReveal *bool) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic executing effects: %v", p)
		}
	}()

	for _, effect := range effects {
		switch e := effect.(type) {
		case RunWaterfall:
			g.runWaterfall(e)
		case CancelLoad:
			g.abortLoad()
		case StartCountdown:
			g.stopCountdown()
			g.ticker = g.clock.Ticker(g.tickInterval)
		case StopCountdown:
			g.stopCountdown()
		case Emit:
			g.emit(e)
		case Redirect:
			redirect := e.Event
			out.redirect = &redirect
			select {
			case g.redirects <- redirect:
			default:
			}
			g.metrics.RecordRedirect(g.state.ActiveAdvertisement != nil)
		case AutoReveal:
			*autoReveal = true
		}
	}
	return nil
}

func (g *DownloadGate) runWaterfall(e RunWaterfall) {
	g.abortLoad()
	if e.ResetSurface {
		g.surface.Reset()
	}

	ctx, cancel := context.WithCancel(g.ctx)
	g.cancelLoad = cancel
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Errorf("gate %s: waterfall pass %d panicked: %v", g.id, e.Pass, p)
				g.post(Fail{Err: fmt.Errorf("waterfall panicked: %v", p)})
			}
		}()
		result := g.runner.Run(ctx, e.Excluded, g.surface)
		g.post(WaterfallCompleted{Pass: e.Pass, Result: result})
	}()
}

func (g *DownloadGate) abortLoad() {
	if g.cancelLoad != nil {
		g.cancelLoad()
		g.cancelLoad = nil
	}
}

func (g *DownloadGate) stopCountdown() {
	if g.ticker != nil {
		g.ticker.Stop()
		g.ticker = nil
	}
}

func (g *DownloadGate) emit(e Emit) {
	if g.reporter == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warnf("gate %s: telemetry reporter panicked: %v", g.id, p)
		}
	}()

	event := &analytics.Event{
		Event:      e.Event,
		ProviderID: analytics.ProviderRef(e.ProviderID),
		Timestamp:  g.clock.Now().UTC(),
		GateID:     g.id,
		Reason:     e.Reason,
	}
	if g.state.Download != nil {
		event.AppSlug = g.state.Download.AppSlug
	}
	g.reporter.Report(event)
}

func (g *DownloadGate) publish() Snapshot {
	snap := g.state.snapshot(g.id)
	g.mu.Lock()
	g.published = snap
	g.mu.Unlock()

	for _, o := range g.observers {
		g.notify(o, snap.clone())
	}
	return snap.clone()
}

func (g *DownloadGate) notify(o Observer, snap Snapshot) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warnf("gate %s: observer panicked: %v", g.id, p)
		}
	}()
	o(snap)
}
