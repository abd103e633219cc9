package errortypes

// InvalidDownloadData should be used when the pending download handed off by the referrer is
// missing or malformed. It is not retryable without fresh input from the referrer.
type InvalidDownloadData struct {
	Message string
}

func (err *InvalidDownloadData) Error() string {
	return err.Message
}

func (err *InvalidDownloadData) Code() int {
	return InvalidDownloadDataErrorCode
}

func (err *InvalidDownloadData) Severity() Severity {
	return SeverityFatal
}

func (err *InvalidDownloadData) Kind() Kind {
	return KindInvalidDownloadData
}

// Timeout should be used when a provider's creative did not finish loading before the provider's
// configured timeout expired.
//
// Timeouts are absorbed by the waterfall, which moves on to the next provider.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityWarning
}

func (err *Timeout) Kind() Kind {
	return KindTimeout
}

// LoadFailure should be used when a provider's creative could not be built, fetched or injected.
//
// Like timeouts, load failures never reach the visitor.
type LoadFailure struct {
	Message string
}

func (err *LoadFailure) Error() string {
	return err.Message
}

func (err *LoadFailure) Code() int {
	return LoadFailureErrorCode
}

func (err *LoadFailure) Severity() Severity {
	return SeverityWarning
}

func (err *LoadFailure) Kind() Kind {
	return KindLoadFailure
}

// AllProvidersExhausted is returned by the waterfall when no provider produced an advertisement.
// It is not user facing: the gate falls back to a fixed countdown.
type AllProvidersExhausted struct {
	Message string
}

func (err *AllProvidersExhausted) Error() string {
	return err.Message
}

func (err *AllProvidersExhausted) Code() int {
	return AllProvidersExhaustedErrorCode
}

func (err *AllProvidersExhausted) Severity() Severity {
	return SeverityWarning
}

func (err *AllProvidersExhausted) Kind() Kind {
	return KindAllProvidersExhausted
}

// ProcessingError covers unexpected failures (panics, broken invariants) inside the gate. It is
// shown to the visitor together with the retry and continue options.
type ProcessingError struct {
	Message string
}

func (err *ProcessingError) Error() string {
	return err.Message
}

func (err *ProcessingError) Code() int {
	return ProcessingErrorCode
}

func (err *ProcessingError) Severity() Severity {
	return SeverityFatal
}

func (err *ProcessingError) Kind() Kind {
	return KindProcessingError
}

// BadServerResponse should be used when an ad server answered a creative probe with an
// unexpected status. The loader reports it as a load failure.
type BadServerResponse struct {
	Message string
}

func (err *BadServerResponse) Error() string {
	return err.Message
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityWarning
}

func (err *BadServerResponse) Kind() Kind {
	return KindLoadFailure
}

// Warning is a generic non-fatal error.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
