package metrics

import (
	"time"

	"github.com/openbidder/bidserver/api"
)

// Labels defines the labels that can be attached to the request metrics.
type Labels struct {
	Phase         api.Phase
	Exchange      api.Exchange
	RequestStatus RequestStatus
}

// RequestStatus is the outcome of one phase request, as answered to the exchange.
type RequestStatus string

const (
	RequestStatusOK       RequestStatus = "ok"
	RequestStatusNoBid    RequestStatus = "nobid"
	RequestStatusBadInput RequestStatus = "badinput"
	RequestStatusErr      RequestStatus = "err"
	RequestStatusTimeout  RequestStatus = "timeout"
	RequestStatusRejected RequestStatus = "rejected"
)

func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		RequestStatusOK,
		RequestStatusNoBid,
		RequestStatusBadInput,
		RequestStatusErr,
		RequestStatusTimeout,
		RequestStatusRejected,
	}
}

// PriceError classifies why an encrypted winning price could not be read.
type PriceError string

const (
	PriceErrorMalformed PriceError = "malformed"
	PriceErrorIntegrity PriceError = "integrity"
)

func PriceErrors() []PriceError {
	return []PriceError{
		PriceErrorMalformed,
		PriceErrorIntegrity,
	}
}

// StorageResult is the outcome of a bounded storage lookup.
type StorageResult string

const (
	StorageHit     StorageResult = "hit"
	StorageMiss    StorageResult = "miss"
	StorageTimeout StorageResult = "timeout"
	StorageError   StorageResult = "error"
)

func StorageResults() []StorageResult {
	return []StorageResult{
		StorageHit,
		StorageMiss,
		StorageTimeout,
		StorageError,
	}
}

// MetricsEngine is a generic interface to record metrics into the desired backend.
// RecordRequest and RecordRequestTime fire once per phase request, labeled by the receiver that served
// it. Implementations must be safe for concurrent use.
type MetricsEngine interface {
	RecordConnectionAccept(success bool)
	RecordConnectionClose(success bool)
	RecordRequest(labels Labels)
	RecordRequestTime(labels Labels, length time.Duration)
	RecordInterceptorTime(phase api.Phase, interceptor string, length time.Duration)
	RecordPriceError(priceError PriceError)
	// RecordWinPrice records a cleared price, in currency units.
	RecordWinPrice(price float64)
	RecordStorageLookup(result StorageResult, length time.Duration)
}
