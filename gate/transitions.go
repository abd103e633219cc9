package gate

import (
	"fmt"

	"github.com/dlgate/download-gate/analytics"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/waterfall"
)

// Env holds the constants transitions depend on.
type Env struct {
	// FallbackCountdownSeconds is the countdown run when no advertisement could be loaded.
	FallbackCountdownSeconds int
	// AutoRevealFallback reveals the download as soon as a gate without an ad is ready.
	AutoRevealFallback bool
}

// Event is an input to Transition.
type Event interface {
	isEvent()
}

// Start validates the download and starts the first waterfall pass.
type Start struct{}

// Tick is one countdown interval elapsing.
type Tick struct{}

// WaterfallCompleted delivers the result of pass Pass.
type WaterfallCompleted struct {
	Pass   uint64
	Result waterfall.Result
}

// Skip asks to move on from the active advertisement.
type Skip struct{}

// Retry restarts a failed gate from scratch.
type Retry struct{}

// ContinueAnyway moves a failed gate straight to READY using the raw download url.
type ContinueAnyway struct{}

// Reveal releases the download url.
type Reveal struct{}

// Fail reports an unexpected error in a timer or loader callback.
type Fail struct {
	Err error
}

func (Start) isEvent()              {}
func (Tick) isEvent()               {}
func (WaterfallCompleted) isEvent() {}
func (Skip) isEvent()               {}
func (Retry) isEvent()              {}
func (ContinueAnyway) isEvent()     {}
func (Reveal) isEvent()             {}
func (Fail) isEvent()               {}

// Effect is work the driver performs after a transition.
type Effect interface {
	isEffect()
}

// RunWaterfall starts waterfall pass Pass, excluding the given providers.
type RunWaterfall struct {
	Pass     uint64
	Excluded []string
	// ResetSurface clears the previous creative before loading.
	ResetSurface bool
}

// CancelLoad abandons any waterfall pass in flight.
type CancelLoad struct{}

type StartCountdown struct{}

type StopCountdown struct{}

// ReasonSkipped marks the CLICK emitted when the user skips an advertisement.
const ReasonSkipped = "skipped"

// Emit reports a telemetry event.
type Emit struct {
	Event      analytics.EventType
	ProviderID string
	Reason     string
}

// Redirect hands the download url to the caller. It is produced once per gate.
type Redirect struct {
	Event RedirectEvent
}

// AutoReveal reveals the download once READY has been published.
type AutoReveal struct{}

func (RunWaterfall) isEffect()   {}
func (CancelLoad) isEffect()     {}
func (StartCountdown) isEffect() {}
func (StopCountdown) isEffect()  {}
func (Emit) isEffect()           {}
func (Redirect) isEffect()       {}
func (AutoReveal) isEffect()     {}

// RedirectEvent is the single event a gate emits when the download is revealed.
type RedirectEvent struct {
	URL string `json:"url"`
	// AdClickURL is the active advertisement's click target, if it has one.
	AdClickURL string `json:"ad_click_url,omitempty"`
}

// Transition computes the state following s on ev. It never mutates s.
//
// Events which no longer apply (stale waterfall results, ticks after the countdown, skips once
// READY) return s unchanged with no effects and no error. Operations which are not allowed in the
// current phase return an error and s unchanged.
func Transition(s State, ev Event, env Env) (State, []Effect, error) {
	switch e := ev.(type) {
	case Start:
		if s.Phase != PhaseInitializing {
			return s, nil, ErrInvalidTransition
		}
		return start(s)
	case Tick:
		return tick(s, env)
	case WaterfallCompleted:
		return waterfallCompleted(s, e, env)
	case Skip:
		return skip(s)
	case Retry:
		if s.Phase != PhaseError {
			return s, nil, ErrInvalidTransition
		}
		n := s.next()
		n.Phase = PhaseInitializing
		n.CountdownRemaining = 0
		n.ActiveAdvertisement = nil
		n.ActiveProviderID = ""
		n.TriedProviderIDs = nil
		n.LastError = ""
		n.ErrorMessage = ""
		n.ErrorCode = 0
		return start(n)
	case ContinueAnyway:
		if s.Phase != PhaseError {
			return s, nil, ErrInvalidTransition
		}
		if !s.Download.HasResolvedURL() {
			return s, nil, ErrNoResolvedURL
		}
		n := s.next()
		n.ActiveAdvertisement = nil
		n.ActiveProviderID = ""
		n.LastError = ""
		n.ErrorMessage = ""
		n.ErrorCode = 0
		n.Phase = PhaseReady
		n.CountdownRemaining = 0
		return n, []Effect{StopCountdown{}}, nil
	case Reveal:
		return reveal(s)
	case Fail:
		if !s.Phase.CanFail() {
			return s, nil, nil
		}
		return fail(s.next(), &errortypes.ProcessingError{Message: errMessage(e.Err)}), []Effect{
			CancelLoad{},
			StopCountdown{},
			Emit{Event: analytics.EventError, Reason: string(errortypes.KindProcessingError)},
		}, nil
	}
	return s, nil, fmt.Errorf("gate: unknown event %T", ev)
}

func start(s State) (State, []Effect, error) {
	n := s.next()
	if err := s.Download.Validate(); err != nil {
		n = fail(n, err)
		return n, []Effect{Emit{Event: analytics.EventError, Reason: string(n.LastError)}}, nil
	}
	return loadAds(n, false)
}

func loadAds(n State, resetSurface bool) (State, []Effect, error) {
	n.Phase = PhaseAdLoading
	n.Pass++
	return n, []Effect{RunWaterfall{
		Pass:         n.Pass,
		Excluded:     append([]string(nil), n.TriedProviderIDs...),
		ResetSurface: resetSurface,
	}}, nil
}

func tick(s State, env Env) (State, []Effect, error) {
	if s.Phase != PhaseCountdownRunning {
		return s, nil, nil
	}
	n := s.next()
	if n.CountdownRemaining > 0 {
		n.CountdownRemaining--
	}
	if n.CountdownRemaining == 0 {
		return ready(n, env)
	}
	return n, nil, nil
}

func waterfallCompleted(s State, e WaterfallCompleted, env Env) (State, []Effect, error) {
	if s.Phase != PhaseAdLoading || e.Pass != s.Pass {
		return s, nil, nil
	}
	n := s.next()
	for _, id := range e.Result.Excluded {
		if !n.tried(id) {
			n.TriedProviderIDs = append(n.TriedProviderIDs, id)
		}
	}

	var effects []Effect
	if e.Result.Success && e.Result.Advertisement != nil {
		n.ActiveAdvertisement = e.Result.Advertisement.Clone()
		n.ActiveProviderID = e.Result.ProviderID
		n.CountdownRemaining = n.ActiveAdvertisement.Settings.CountdownSeconds
		effects = append(effects, Emit{Event: analytics.EventImpression, ProviderID: n.ActiveProviderID})
	} else {
		n.ActiveAdvertisement = nil
		n.ActiveProviderID = ""
		n.CountdownRemaining = env.FallbackCountdownSeconds
	}
	if n.CountdownRemaining < 0 {
		n.CountdownRemaining = 0
	}

	if n.CountdownRemaining == 0 {
		var more []Effect
		n, more, _ = ready(n, env)
		return n, append(effects, more...), nil
	}
	n.Phase = PhaseCountdownRunning
	return n, append(effects, StartCountdown{}), nil
}

func ready(n State, env Env) (State, []Effect, error) {
	n.Phase = PhaseReady
	n.CountdownRemaining = 0
	effects := []Effect{StopCountdown{}}
	if ad := n.ActiveAdvertisement; ad != nil && ad.Settings.AutoCloseOnReady {
		effects = append(effects, AutoReveal{})
	} else if ad == nil && env.AutoRevealFallback {
		effects = append(effects, AutoReveal{})
	}
	return n, effects, nil
}

func skip(s State) (State, []Effect, error) {
	switch s.Phase {
	case PhaseReady, PhaseRedirecting:
		return s, nil, nil
	case PhaseCountdownRunning:
		if !s.CanSkip() {
			return s, nil, ErrSkipNotAllowed
		}
	default:
		return s, nil, ErrInvalidTransition
	}

	skipped := s.ActiveProviderID
	n := s.next()
	if skipped != "" && !n.tried(skipped) {
		n.TriedProviderIDs = append(n.TriedProviderIDs, skipped)
	}
	n.ActiveAdvertisement = nil
	n.ActiveProviderID = ""
	n, effects, err := loadAds(n, true)
	return n, append([]Effect{
		StopCountdown{},
		Emit{Event: analytics.EventClick, ProviderID: skipped, Reason: ReasonSkipped},
	}, effects...), err
}

func reveal(s State) (State, []Effect, error) {
	switch s.Phase {
	case PhaseReady:
	case PhaseRedirecting:
		return s, nil, ErrAlreadyRedirected
	default:
		return s, nil, ErrInvalidTransition
	}

	n := s.next()
	n.Phase = PhaseRedirecting
	redirect := RedirectEvent{URL: n.Download.ResolvedURL}
	if n.ActiveAdvertisement != nil {
		redirect.AdClickURL = n.ActiveAdvertisement.ClickURL
	}
	return n, []Effect{
		Emit{Event: analytics.EventClick, ProviderID: n.ActiveProviderID},
		Redirect{Event: redirect},
	}, nil
}

// fail moves n to ERROR. Kinds which aren't user visible are reported as processing errors.
func fail(n State, err error) State {
	kind, code := errortypes.ReadKind(err), errortypes.ReadCode(err)
	if !kind.UserVisible() {
		kind, code = errortypes.KindProcessingError, errortypes.ProcessingErrorCode
	}
	n.Phase = PhaseError
	n.LastError = kind
	n.ErrorMessage = errMessage(err)
	n.ErrorCode = code
	n.CountdownRemaining = 0
	n.ActiveAdvertisement = nil
	n.ActiveProviderID = ""
	return n
}

func errMessage(err error) string {
	if err == nil {
		return "unexpected error"
	}
	return err.Error()
}
