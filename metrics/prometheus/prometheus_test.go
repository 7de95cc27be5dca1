package prometheusmetrics

import (
	"testing"
	"time"

	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMetricsForTesting() *Metrics {
	return NewMetrics(config.PrometheusMetrics{
		Port:      8080,
		Namespace: "bidserver",
		Subsystem: "server",
	})
}

func TestMetricCountGatekeeping(t *testing.T) {
	m := createMetricsForTesting()

	metricFamilies, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(metricFamilies))
	for _, family := range metricFamilies {
		names[family.GetName()] = true
	}
	assert.True(t, names["bidserver_server_requests"], "requests preloaded")
	assert.True(t, names["bidserver_server_price_errors"], "price errors preloaded")
	assert.True(t, names["bidserver_server_connections_opened"], "connections opened registered")
}

func TestPreloadedRequestLabels(t *testing.T) {
	m := createMetricsForTesting()

	metricFamilies, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, family := range metricFamilies {
		if family.GetName() == "bidserver_server_requests" {
			assert.Len(t, family.GetMetric(), len(api.Phases())*len(api.Exchanges())*len(metrics.RequestStatuses()))
		}
	}
}

func TestConnectionMetrics(t *testing.T) {
	testCases := []struct {
		description              string
		testCase                 func(m *Metrics)
		expectedOpened           float64
		expectedClosed           float64
		expectedOpenedErrorCount float64
		expectedClosedErrorCount float64
	}{
		{
			description:    "Open Success",
			testCase:       func(m *Metrics) { m.RecordConnectionAccept(true) },
			expectedOpened: 1,
		},
		{
			description:              "Open Error",
			testCase:                 func(m *Metrics) { m.RecordConnectionAccept(false) },
			expectedOpenedErrorCount: 1,
		},
		{
			description:    "Closed Success",
			testCase:       func(m *Metrics) { m.RecordConnectionClose(true) },
			expectedClosed: 1,
		},
		{
			description:              "Closed Error",
			testCase:                 func(m *Metrics) { m.RecordConnectionClose(false) },
			expectedClosedErrorCount: 1,
		},
	}

	for _, test := range testCases {
		m := createMetricsForTesting()

		test.testCase(m)

		assertCounterValue(t, test.description, "connectionsOpened", m.connectionsOpened, test.expectedOpened)
		assertCounterValue(t, test.description, "connectionsClosed", m.connectionsClosed, test.expectedClosed)
		assertCounterVecValue(t, test.description, "connectionsError[accept]", m.connectionsError,
			test.expectedOpenedErrorCount, prometheus.Labels{connectionErrorLabel: connectionAcceptError})
		assertCounterVecValue(t, test.description, "connectionsError[close]", m.connectionsError,
			test.expectedClosedErrorCount, prometheus.Labels{connectionErrorLabel: connectionCloseError})
	}
}

func TestRequestMetric(t *testing.T) {
	m := createMetricsForTesting()
	labels := metrics.Labels{Phase: api.PhaseImpression, Exchange: api.DoubleClick, RequestStatus: metrics.RequestStatusOK}

	m.RecordRequest(labels)
	m.RecordRequest(labels)
	m.RecordRequest(metrics.Labels{Phase: api.PhaseImpression, Exchange: api.DoubleClick, RequestStatus: metrics.RequestStatusBadInput})
	m.RecordRequest(metrics.Labels{Phase: api.PhaseImpression, Exchange: api.NoExchange, RequestStatus: metrics.RequestStatusOK})

	assertCounterVecValue(t, "", "requests[impression,doubleclick,ok]", m.requests, 2,
		prometheus.Labels{phaseLabel: "impression", exchangeLabel: "doubleclick", requestStatusLabel: "ok"})
	assertCounterVecValue(t, "", "requests[impression,doubleclick,badinput]", m.requests, 1,
		prometheus.Labels{phaseLabel: "impression", exchangeLabel: "doubleclick", requestStatusLabel: "badinput"})
	assertCounterVecValue(t, "", "requests[impression,none,ok]", m.requests, 1,
		prometheus.Labels{phaseLabel: "impression", exchangeLabel: "none", requestStatusLabel: "ok"})
	assertCounterVecValue(t, "", "requests[bid,doubleclick,ok]", m.requests, 0,
		prometheus.Labels{phaseLabel: "bid", exchangeLabel: "doubleclick", requestStatusLabel: "ok"})
}

func TestRequestTimeMetric(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordRequestTime(metrics.Labels{Phase: api.PhaseBid, Exchange: api.DoubleClick, RequestStatus: metrics.RequestStatusOK}, 20*time.Millisecond)

	result := getHistogramFromHistogramVecByLabels(m.requestsTimer, prometheus.Labels{phaseLabel: "bid", exchangeLabel: "doubleclick"})
	assertHistogram(t, "request_time_seconds", result, 1, 0.02)
}

func TestInterceptorTimeMetric(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordInterceptorTime(api.PhaseBid, "stored_bid", 2*time.Millisecond)
	m.RecordInterceptorTime(api.PhaseBid, "stored_bid", 3*time.Millisecond)

	result := getHistogramFromHistogramVecByLabels(m.interceptorTimer,
		prometheus.Labels{phaseLabel: "bid", interceptorLabel: "stored_bid"})
	assertHistogram(t, "interceptor_time_seconds", result, 2, 0.005)
}

func TestPriceMetrics(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordPriceError(metrics.PriceErrorIntegrity)
	m.RecordWinPrice(1.5)

	assertCounterVecValue(t, "", "price_errors[integrity]", m.priceErrors, 1,
		prometheus.Labels{priceErrorLabel: "integrity"})
	assertCounterVecValue(t, "", "price_errors[malformed]", m.priceErrors, 0,
		prometheus.Labels{priceErrorLabel: "malformed"})

	result := &dto.Metric{}
	require.NoError(t, m.winPrices.Write(result))
	assertHistogram(t, "win_price", result.GetHistogram(), 1, 1.5)
}

func TestStorageLookupMetric(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordStorageLookup(metrics.StorageMiss, time.Millisecond)
	m.RecordStorageLookup(metrics.StorageTimeout, 10*time.Millisecond)

	assertCounterVecValue(t, "", "storage_lookups[miss]", m.storageLookups, 1,
		prometheus.Labels{storageResultLabel: "miss"})
	assertCounterVecValue(t, "", "storage_lookups[timeout]", m.storageLookups, 1,
		prometheus.Labels{storageResultLabel: "timeout"})

	result := &dto.Metric{}
	require.NoError(t, m.storageTimer.Write(result))
	assertHistogram(t, "storage_lookup_time_seconds", result.GetHistogram(), 2, 0.011)
}

func assertCounterValue(t *testing.T, description, name string, counter prometheus.Counter, expected float64) {
	t.Helper()
	m := &dto.Metric{}
	counter.Write(m)
	actual := m.GetCounter().GetValue()

	assert.Equal(t, expected, actual, description+":"+name)
}

func assertCounterVecValue(t *testing.T, description, name string, counterVec *prometheus.CounterVec, expected float64, labels prometheus.Labels) {
	t.Helper()
	counter := counterVec.With(labels)
	assertCounterValue(t, description, name, counter, expected)
}

func getHistogramFromHistogramVecByLabels(histogram *prometheus.HistogramVec, labels prometheus.Labels) *dto.Histogram {
	result := &dto.Histogram{}
	processMetrics(histogram, func(m *dto.Metric) {
		for _, label := range m.GetLabel() {
			if labels[label.GetName()] != label.GetValue() {
				return
			}
		}
		result = m.GetHistogram()
	})
	return result
}

func processMetrics(collector prometheus.Collector, handler func(m *dto.Metric)) {
	collectorChan := make(chan prometheus.Metric)
	go func() {
		collector.Collect(collectorChan)
		close(collectorChan)
	}()

	for metric := range collectorChan {
		dtoMetric := &dto.Metric{}
		metric.Write(dtoMetric)
		handler(dtoMetric)
	}
}

func assertHistogram(t *testing.T, name string, histogram *dto.Histogram, expectedCount uint64, expectedSum float64) {
	t.Helper()
	assert.Equal(t, expectedCount, histogram.GetSampleCount(), name+":count")
	assert.InDelta(t, expectedSum, histogram.GetSampleSum(), 0.0001, name+":sum")
}
