package errortypes

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error to the status answered to the exchange. Soft failures map to 200 because
// the receiver answers them with the phase's default response.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var c Coder
	if !errors.As(err, &c) {
		return http.StatusInternalServerError
	}
	switch c.Code() {
	case MalformedPayloadErrorCode, MalformedTokenErrorCode, IntegrityCheckFailedErrorCode:
		return http.StatusBadRequest
	case BusinessLogicFailureErrorCode, TimeoutErrorCode, RejectedWarningCode:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
