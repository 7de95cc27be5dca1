package errortypes

// MalformedPayload should be used when an inbound request cannot be decoded into a domain request:
// truncated or unparseable bodies, missing mandatory fields, wrong methods.
//
// These are answered with a 4xx and never retried. Retrying is the exchange's responsibility.
type MalformedPayload struct {
	Message string
}

func (err *MalformedPayload) Error() string {
	return err.Message
}

func (err *MalformedPayload) Code() int {
	return MalformedPayloadErrorCode
}

func (err *MalformedPayload) Severity() Severity {
	return SeverityFatal
}

// MalformedToken should be used when an encrypted price token cannot be split into its structural
// parts (bad encoding, wrong length).
//
// Token failures are treated as adversarial input. The affected field is dropped, never guessed.
type MalformedToken struct {
	Message string
}

func (err *MalformedToken) Error() string {
	return err.Message
}

func (err *MalformedToken) Code() int {
	return MalformedTokenErrorCode
}

func (err *MalformedToken) Severity() Severity {
	return SeverityFatal
}

// IntegrityCheckFailed should be used when the authentication part of an encrypted price token does
// not match the decrypted price and its binding context.
type IntegrityCheckFailed struct {
	Message string
}

func (err *IntegrityCheckFailed) Error() string {
	return err.Message
}

func (err *IntegrityCheckFailed) Code() int {
	return IntegrityCheckFailedErrorCode
}

func (err *IntegrityCheckFailed) Severity() Severity {
	return SeverityFatal
}

// InvalidChainUsage flags a programming error in interceptor wiring, such as calling Proceed twice
// from the same interceptor. It is fatal to the current request only and surfaces as a 5xx.
type InvalidChainUsage struct {
	Message string
}

func (err *InvalidChainUsage) Error() string {
	return err.Message
}

func (err *InvalidChainUsage) Code() int {
	return InvalidChainUsageErrorCode
}

func (err *InvalidChainUsage) Severity() Severity {
	return SeverityFatal
}

// BusinessLogicFailure wraps any other error raised by an interceptor. The receiver answers with the
// phase's default (no-bid) response.
type BusinessLogicFailure struct {
	Interceptor string
	Err         error
}

func (err *BusinessLogicFailure) Error() string {
	if err.Interceptor == "" {
		return "interceptor failed: " + err.Err.Error()
	}
	return "interceptor " + err.Interceptor + " failed: " + err.Err.Error()
}

func (err *BusinessLogicFailure) Unwrap() error {
	return err.Err
}

func (err *BusinessLogicFailure) Code() int {
	return BusinessLogicFailureErrorCode
}

func (err *BusinessLogicFailure) Severity() Severity {
	return SeverityFatal
}

// Timeout should be used when a bounded wait on a collaborator (storage lookup, remote call) expired.
//
// Timeouts are soft failures: the receiver falls back to the default response.
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

// Rejected is returned by admission-control interceptors that want the request answered with the
// default response without it being counted as a failure.
type Rejected struct {
	Reason string
}

func (err *Rejected) Error() string {
	return "request rejected: " + err.Reason
}

func (err *Rejected) Code() int {
	return RejectedWarningCode
}

func (err *Rejected) Severity() Severity {
	return SeverityWarning
}

// ResponseFrozen is returned by response setters once the response has been handed to the transport.
type ResponseFrozen struct {
	Message string
}

func (err *ResponseFrozen) Error() string {
	return err.Message
}

func (err *ResponseFrozen) Code() int {
	return ResponseFrozenErrorCode
}

func (err *ResponseFrozen) Severity() Severity {
	return SeverityFatal
}
