package prometheusmetrics

import (
	"time"

	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry

	connectionsClosed prometheus.Counter
	connectionsError  *prometheus.CounterVec
	connectionsOpened prometheus.Counter
	requests          *prometheus.CounterVec
	requestsTimer     *prometheus.HistogramVec
	interceptorTimer  *prometheus.HistogramVec
	priceErrors       *prometheus.CounterVec
	winPrices         prometheus.Histogram
	storageLookups    *prometheus.CounterVec
	storageTimer      prometheus.Histogram
}

const (
	connectionErrorLabel = "connection_error"
	exchangeLabel        = "exchange"
	interceptorLabel     = "interceptor"
	phaseLabel           = "phase"
	priceErrorLabel      = "price_error"
	requestStatusLabel   = "request_status"
	storageResultLabel   = "storage_result"
)

const (
	connectionAcceptError = "accept"
	connectionCloseError  = "close"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	standardTimeBuckets := []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.08, 0.1, 0.2, 0.5, 1}
	interceptorTimeBuckets := []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1}
	priceBuckets := []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 10, 20}

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.connectionsClosed = newCounterWithoutLabels(cfg, metrics.Registry,
		"connections_closed",
		"Count of successful connections closed to the bidder.")

	metrics.connectionsError = newCounter(cfg, metrics.Registry,
		"connections_error",
		"Count of errors for connection open and close attempts to the bidder labeled by type.",
		[]string{connectionErrorLabel})

	metrics.connectionsOpened = newCounterWithoutLabels(cfg, metrics.Registry,
		"connections_opened",
		"Count of successful connections opened to the bidder.")

	metrics.requests = newCounter(cfg, metrics.Registry,
		"requests",
		"Count of exchange requests labeled by phase, exchange and status.",
		[]string{phaseLabel, exchangeLabel, requestStatusLabel})

	metrics.requestsTimer = newHistogramVec(cfg, metrics.Registry,
		"request_time_seconds",
		"Seconds to answer exchange requests labeled by phase and exchange.",
		[]string{phaseLabel, exchangeLabel},
		standardTimeBuckets)

	metrics.interceptorTimer = newHistogramVec(cfg, metrics.Registry,
		"interceptor_time_seconds",
		"Seconds spent in an interceptor and the interceptors after it, labeled by phase and interceptor.",
		[]string{phaseLabel, interceptorLabel},
		interceptorTimeBuckets)

	metrics.priceErrors = newCounter(cfg, metrics.Registry,
		"price_errors",
		"Count of winning price tokens that could not be decrypted labeled by reason.",
		[]string{priceErrorLabel})

	metrics.winPrices = newHistogram(cfg, metrics.Registry,
		"win_price",
		"Cleared winning prices, in currency units.",
		priceBuckets)

	metrics.storageLookups = newCounter(cfg, metrics.Registry,
		"storage_lookups",
		"Count of storage lookups labeled by result.",
		[]string{storageResultLabel})

	metrics.storageTimer = newHistogram(cfg, metrics.Registry,
		"storage_lookup_time_seconds",
		"Seconds to complete a bounded storage lookup.",
		interceptorTimeBuckets)

	preloadLabelValues(&metrics)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func newHistogram(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, buckets []float64) prometheus.Histogram {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogram(opts)
	registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) RecordConnectionAccept(success bool) {
	if success {
		m.connectionsOpened.Inc()
	} else {
		m.connectionsError.With(prometheus.Labels{
			connectionErrorLabel: connectionAcceptError,
		}).Inc()
	}
}

func (m *Metrics) RecordConnectionClose(success bool) {
	if success {
		m.connectionsClosed.Inc()
	} else {
		m.connectionsError.With(prometheus.Labels{
			connectionErrorLabel: connectionCloseError,
		}).Inc()
	}
}

func (m *Metrics) RecordRequest(labels metrics.Labels) {
	m.requests.With(prometheus.Labels{
		phaseLabel:         string(labels.Phase),
		exchangeLabel:      labels.Exchange.Name(),
		requestStatusLabel: string(labels.RequestStatus),
	}).Inc()
}

func (m *Metrics) RecordRequestTime(labels metrics.Labels, length time.Duration) {
	m.requestsTimer.With(prometheus.Labels{
		phaseLabel:    string(labels.Phase),
		exchangeLabel: labels.Exchange.Name(),
	}).Observe(length.Seconds())
}

func (m *Metrics) RecordInterceptorTime(phase api.Phase, interceptor string, length time.Duration) {
	m.interceptorTimer.With(prometheus.Labels{
		phaseLabel:       string(phase),
		interceptorLabel: interceptor,
	}).Observe(length.Seconds())
}

func (m *Metrics) RecordPriceError(priceError metrics.PriceError) {
	m.priceErrors.With(prometheus.Labels{
		priceErrorLabel: string(priceError),
	}).Inc()
}

func (m *Metrics) RecordWinPrice(price float64) {
	m.winPrices.Observe(price)
}

func (m *Metrics) RecordStorageLookup(result metrics.StorageResult, length time.Duration) {
	m.storageLookups.With(prometheus.Labels{
		storageResultLabel: string(result),
	}).Inc()
	m.storageTimer.Observe(length.Seconds())
}
