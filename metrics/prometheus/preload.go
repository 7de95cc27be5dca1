package prometheusmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// preloadLabelValues creates every known label combination so dashboards see zeroes instead of gaps.
func preloadLabelValues(m *Metrics) {
	phaseValues := phasesAsString()
	exchangeValues := exchangesAsString()

	preloadLabelValuesForCounter(m.connectionsError, map[string][]string{
		connectionErrorLabel: {connectionAcceptError, connectionCloseError},
	})

	preloadLabelValuesForCounter(m.requests, map[string][]string{
		phaseLabel:         phaseValues,
		exchangeLabel:      exchangeValues,
		requestStatusLabel: requestStatusesAsString(),
	})

	preloadLabelValuesForHistogram(m.requestsTimer, map[string][]string{
		phaseLabel:    phaseValues,
		exchangeLabel: exchangeValues,
	})

	preloadLabelValuesForCounter(m.priceErrors, map[string][]string{
		priceErrorLabel: priceErrorsAsString(),
	})

	preloadLabelValuesForCounter(m.storageLookups, map[string][]string{
		storageResultLabel: storageResultsAsString(),
	})
}

func preloadLabelValuesForCounter(counter *prometheus.CounterVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		counter.With(labels)
	})
}

func preloadLabelValuesForHistogram(histogram *prometheus.HistogramVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		histogram.With(labels)
	})
}

func registerLabelPermutations(labelsWithValues map[string][]string, register func(prometheus.Labels)) {
	if len(labelsWithValues) == 0 {
		return
	}

	keys := make([]string, 0, len(labelsWithValues))
	values := make([][]string, 0, len(labelsWithValues))
	for k, v := range labelsWithValues {
		keys = append(keys, k)
		values = append(values, v)
	}

	labels := prometheus.Labels{}
	registerLabelPermutationsRecursive(0, keys, values, labels, register)
}

func registerLabelPermutationsRecursive(depth int, keys []string, values [][]string, labels prometheus.Labels, register func(prometheus.Labels)) {
	label := keys[depth]
	isLeaf := depth == len(keys)-1

	for _, value := range values[depth] {
		labels[label] = value

		if isLeaf {
			registeredLabels := make(prometheus.Labels, len(labels))
			for k, v := range labels {
				registeredLabels[k] = v
			}
			register(registeredLabels)
		} else {
			registerLabelPermutationsRecursive(depth+1, keys, values, labels, register)
		}
	}
}
