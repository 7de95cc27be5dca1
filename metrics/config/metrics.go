package config

import (
	"time"

	"github.com/golang/glog"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/metrics"
	prometheusmetrics "github.com/openbidder/bidserver/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	gometrics "github.com/rcrowley/go-metrics"
	influxdb "github.com/vrischmann/go-metrics-influxdb"
)

// NewMetricsEngine reads the configuration and returns the appropriate metrics engine
// for this instance.
func NewMetricsEngine(cfg *config.Configuration) *DetailedMetricsEngine {
	// Create a list of metrics engines to use.
	// Capacity of 2, as unlikely to have more than 2 metrics backends, and in the case
	// of 1 we won't use the list so it will be garbage collected.
	engineList := make(MultiMetricsEngine, 0, 2)
	returnEngine := DetailedMetricsEngine{}

	if cfg.Metrics.GoMetrics.Enabled || cfg.Metrics.Influxdb.Host != "" {
		// Metrics are served as JSON by the admin endpoint, and optionally pushed to InfluxDB.
		registry := gometrics.NewPrefixedRegistry(cfg.Metrics.GoMetrics.Prefix + ".")
		returnEngine.GoMetrics = metrics.NewMetrics(registry)
		engineList = append(engineList, returnEngine.GoMetrics)

		if cfg.Metrics.Influxdb.Host != "" {
			glog.Infof("Reporting metrics to InfluxDB at %s every %ds", cfg.Metrics.Influxdb.Host, cfg.Metrics.Influxdb.MetricSendInterval)
			go influxdb.InfluxDB(
				registry, // metrics registry
				time.Second*time.Duration(cfg.Metrics.Influxdb.MetricSendInterval), // interval
				cfg.Metrics.Influxdb.Host,     // the InfluxDB url
				cfg.Metrics.Influxdb.Database, // your InfluxDB database
				cfg.Metrics.Influxdb.Username, // your InfluxDB user
				cfg.Metrics.Influxdb.Password, // your InfluxDB password
			)
		}
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		// Set up the Prometheus metrics.
		returnEngine.PrometheusMetrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus)
		engineList = append(engineList, returnEngine.PrometheusMetrics)
	}

	// Now return the proper metrics engine
	if len(engineList) > 1 {
		returnEngine.MetricsEngine = &engineList
	} else if len(engineList) == 1 {
		returnEngine.MetricsEngine = engineList[0]
	} else {
		returnEngine.MetricsEngine = &DummyMetricsEngine{}
	}

	return &returnEngine
}

// DetailedMetricsEngine is a MultiMetricsEngine that preserves links to underlying metrics engines.
type DetailedMetricsEngine struct {
	metrics.MetricsEngine
	GoMetrics         *metrics.Metrics
	PrometheusMetrics *prometheusmetrics.Metrics
}

// PrometheusRegistry returns the registry the Prometheus listener serves, or nil when Prometheus is disabled.
func (e *DetailedMetricsEngine) PrometheusRegistry() *prometheus.Registry {
	if e.PrometheusMetrics == nil {
		return nil
	}
	return e.PrometheusMetrics.Registry
}

// GoMetricsRegistry returns the registry the admin endpoint serves, or nil when go-metrics is disabled.
func (e *DetailedMetricsEngine) GoMetricsRegistry() gometrics.Registry {
	if e.GoMetrics == nil {
		return nil
	}
	return e.GoMetrics.MetricsRegistry
}

// MultiMetricsEngine logs metrics to multiple metrics databases The can be useful in transitioning
// an instance from one engine to another, you can run both in parallel to verify stats match up.
type MultiMetricsEngine []metrics.MetricsEngine

// RecordConnectionAccept across all engines
func (me *MultiMetricsEngine) RecordConnectionAccept(success bool) {
	for _, thisME := range *me {
		thisME.RecordConnectionAccept(success)
	}
}

// RecordConnectionClose across all engines
func (me *MultiMetricsEngine) RecordConnectionClose(success bool) {
	for _, thisME := range *me {
		thisME.RecordConnectionClose(success)
	}
}

// RecordRequest across all engines
func (me *MultiMetricsEngine) RecordRequest(labels metrics.Labels) {
	for _, thisME := range *me {
		thisME.RecordRequest(labels)
	}
}

// RecordRequestTime across all engines
func (me *MultiMetricsEngine) RecordRequestTime(labels metrics.Labels, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordRequestTime(labels, length)
	}
}

// RecordInterceptorTime across all engines
func (me *MultiMetricsEngine) RecordInterceptorTime(phase api.Phase, interceptor string, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordInterceptorTime(phase, interceptor, length)
	}
}

// RecordPriceError across all engines
func (me *MultiMetricsEngine) RecordPriceError(priceError metrics.PriceError) {
	for _, thisME := range *me {
		thisME.RecordPriceError(priceError)
	}
}

// RecordWinPrice across all engines
func (me *MultiMetricsEngine) RecordWinPrice(price float64) {
	for _, thisME := range *me {
		thisME.RecordWinPrice(price)
	}
}

// RecordStorageLookup across all engines
func (me *MultiMetricsEngine) RecordStorageLookup(result metrics.StorageResult, length time.Duration) {
	for _, thisME := range *me {
		thisME.RecordStorageLookup(result, length)
	}
}

// DummyMetricsEngine is a Noop metrics engine in case no metrics are configured. (may also be useful for tests)
type DummyMetricsEngine struct{}

// RecordConnectionAccept as a noop
func (me *DummyMetricsEngine) RecordConnectionAccept(success bool) {
}

// RecordConnectionClose as a noop
func (me *DummyMetricsEngine) RecordConnectionClose(success bool) {
}

// RecordRequest as a noop
func (me *DummyMetricsEngine) RecordRequest(labels metrics.Labels) {
}

// RecordRequestTime as a noop
func (me *DummyMetricsEngine) RecordRequestTime(labels metrics.Labels, length time.Duration) {
}

// RecordInterceptorTime as a noop
func (me *DummyMetricsEngine) RecordInterceptorTime(phase api.Phase, interceptor string, length time.Duration) {
}

// RecordPriceError as a noop
func (me *DummyMetricsEngine) RecordPriceError(priceError metrics.PriceError) {
}

// RecordWinPrice as a noop
func (me *DummyMetricsEngine) RecordWinPrice(price float64) {
}

// RecordStorageLookup as a noop
func (me *DummyMetricsEngine) RecordStorageLookup(result metrics.StorageResult, length time.Duration) {
}
