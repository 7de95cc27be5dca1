package endpoints

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	gometrics "github.com/rcrowley/go-metrics"
)

// NewStatusEndpoint answers health checks. An empty response means 204 No Content.
func NewStatusEndpoint(response string) httprouter.Handle {
	if response == "" {
		return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusNoContent)
		}
	}
	responseBytes := []byte(response)
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Write(responseBytes)
	}
}

// NewMetricsEndpoint serves a JSON snapshot of the go-metrics registry.
func NewMetricsEndpoint(registry gometrics.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		gometrics.WriteJSONOnce(registry, w)
	}
}
