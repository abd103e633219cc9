package gate

// Phase is the position of a gate in its lifecycle.
type Phase string

const (
	PhaseInitializing     Phase = "INITIALIZING"
	PhaseAdLoading        Phase = "AD_LOADING"
	PhaseCountdownRunning Phase = "COUNTDOWN_RUNNING"
	PhaseReady            Phase = "READY"
	PhaseRedirecting      Phase = "REDIRECTING"
	PhaseError            Phase = "ERROR"
)

func Phases() []Phase {
	return []Phase{
		PhaseInitializing,
		PhaseAdLoading,
		PhaseCountdownRunning,
		PhaseReady,
		PhaseRedirecting,
		PhaseError,
	}
}

// CanFail reports whether the gate may still move to ERROR from this phase.
func (p Phase) CanFail() bool {
	return p != PhaseRedirecting
}
