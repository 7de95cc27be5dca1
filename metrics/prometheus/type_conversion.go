package prometheusmetrics

import (
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/metrics"
)

func phasesAsString() []string {
	values := api.Phases()
	valuesAsString := make([]string, len(values))
	for i, v := range values {
		valuesAsString[i] = string(v)
	}
	return valuesAsString
}

func exchangesAsString() []string {
	values := api.Exchanges()
	valuesAsString := make([]string, len(values))
	for i, v := range values {
		valuesAsString[i] = v.Name()
	}
	return valuesAsString
}

func requestStatusesAsString() []string {
	values := metrics.RequestStatuses()
	valuesAsString := make([]string, len(values))
	for i, v := range values {
		valuesAsString[i] = string(v)
	}
	return valuesAsString
}

func priceErrorsAsString() []string {
	values := metrics.PriceErrors()
	valuesAsString := make([]string, len(values))
	for i, v := range values {
		valuesAsString[i] = string(v)
	}
	return valuesAsString
}

func storageResultsAsString() []string {
	values := metrics.StorageResults()
	valuesAsString := make([]string, len(values))
	for i, v := range values {
		valuesAsString[i] = string(v)
	}
	return valuesAsString
}
