package gate

import "errors"

var (
	// ErrDisposed is returned by every operation on a disposed gate.
	ErrDisposed = errors.New("gate: disposed")
	// ErrInvalidTransition is returned when an operation makes no sense in the current phase.
	ErrInvalidTransition = errors.New("gate: operation not allowed in current phase")
	// ErrSkipNotAllowed is returned when skipping an ad that can't be skipped.
	ErrSkipNotAllowed = errors.New("gate: the active advertisement can't be skipped")
	// ErrNoResolvedURL is returned by ContinueAnyway when there is nothing to continue to.
	ErrNoResolvedURL = errors.New("gate: no resolved download url to continue to")
	// ErrAlreadyRedirected is returned by a second Reveal.
	ErrAlreadyRedirected = errors.New("gate: download already revealed")
)
