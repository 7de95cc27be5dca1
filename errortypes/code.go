package errortypes

import "errors"

// Defines numeric codes for well-known errors.
const (
	UnknownErrorCode = 999
	TimeoutErrorCode = iota
	MalformedPayloadErrorCode
	MalformedTokenErrorCode
	IntegrityCheckFailedErrorCode
	InvalidChainUsageErrorCode
	BusinessLogicFailureErrorCode
	ResponseFrozenErrorCode
)

// Defines numeric codes for well-known warnings.
const (
	UnknownWarningCode  = 10999
	RejectedWarningCode = iota + 10000
)

// Coder provides an error or warning code with severity.
type Coder interface {
	Code() int
	Severity() Severity
}

// ReadCode returns the error or warning code of the first Coder in err's chain, or UnknownErrorCode
// if unavailable.
func ReadCode(err error) int {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return UnknownErrorCode
}
