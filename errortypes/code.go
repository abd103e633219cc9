package errortypes

import "errors"

// Defines numeric codes for well-known errors.
const (
	UnknownErrorCode = 999
	TimeoutErrorCode = iota
	InvalidDownloadDataErrorCode
	LoadFailureErrorCode
	AllProvidersExhaustedErrorCode
	ProcessingErrorCode
	BadServerResponseErrorCode
)

// Defines numeric codes for well-known warnings.
const (
	UnknownWarningCode          = 10999
	DisabledProviderWarningCode = iota + 10000
	TelemetryDroppedWarningCode
)

// Kind is the gate-level classification of an error, as shown in gate state and telemetry.
type Kind string

const (
	KindInvalidDownloadData   Kind = "INVALID_DOWNLOAD_DATA"
	KindTimeout               Kind = "TIMEOUT"
	KindLoadFailure           Kind = "LOAD_FAILURE"
	KindAllProvidersExhausted Kind = "ALL_PROVIDERS_EXHAUSTED"
	KindProcessingError       Kind = "PROCESSING_ERROR"
)

// UserVisible reports whether errors of this kind may put a gate into its error state.
// Everything else is recovered locally.
func (k Kind) UserVisible() bool {
	return k == KindInvalidDownloadData || k == KindProcessingError
}

// Coder provides an error or warning code with severity.
type Coder interface {
	Code() int
	Severity() Severity
}

// Kinder provides the gate-level error kind.
type Kinder interface {
	Kind() Kind
}

// ReadCode returns the error or warning code, or UnknownErrorCode if unavailable.
func ReadCode(err error) int {
	var e Coder
	if errors.As(err, &e) {
		return e.Code()
	}
	return UnknownErrorCode
}

// ReadKind returns the kind of err. Errors without one are processing errors, and nil has no kind.
func ReadKind(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindProcessingError
}
