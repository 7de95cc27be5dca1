package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/openbidder/bidserver/api"
	"github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics backed MetricsEngine. Its registry is also served as JSON by the admin endpoint.
type Metrics struct {
	MetricsRegistry            metrics.Registry
	ConnectionCounter          metrics.Counter
	ConnectionAcceptErrorMeter metrics.Meter
	ConnectionCloseErrorMeter  metrics.Meter
	WinPriceHistogram          metrics.Histogram

	PhaseMetrics    map[api.Phase]*PhaseMetrics
	ExchangeMetrics map[api.Exchange]*ExchangeMetrics
	PriceErrors    map[PriceError]metrics.Meter
	StorageResults map[StorageResult]metrics.Meter
	StorageTimer   metrics.Timer

	// interceptor timers are created on first use, keyed by phase then name
	interceptorTimers        map[api.Phase]map[string]metrics.Timer
	interceptorTimersRWMutex sync.RWMutex
	blank                    bool
}

// PhaseMetrics houses the metrics for one phase receiver.
type PhaseMetrics struct {
	RequestStatuses map[RequestStatus]metrics.Meter
	RequestTimer    metrics.Timer
}

// ExchangeMetrics houses the request metrics of one exchange, across phases.
type ExchangeMetrics struct {
	RequestStatuses map[RequestStatus]metrics.Meter
	RequestTimer    metrics.Timer
}

// NewBlankMetrics creates a new Metrics object with all blank metrics object. This may also be useful for
// testing routines to ensure that no metrics are written anywhere.
func NewBlankMetrics(registry metrics.Registry) *Metrics {
	blankMeter := &metrics.NilMeter{}
	newMetrics := &Metrics{
		MetricsRegistry:            registry,
		ConnectionCounter:          metrics.NilCounter{},
		ConnectionAcceptErrorMeter: blankMeter,
		ConnectionCloseErrorMeter:  blankMeter,
		WinPriceHistogram:          metrics.NilHistogram{},
		PhaseMetrics:               make(map[api.Phase]*PhaseMetrics, len(api.Phases())),
		ExchangeMetrics:            make(map[api.Exchange]*ExchangeMetrics, len(api.Exchanges())),
		PriceErrors:                make(map[PriceError]metrics.Meter),
		StorageResults:             make(map[StorageResult]metrics.Meter),
		StorageTimer:               &metrics.NilTimer{},
		interceptorTimers:          make(map[api.Phase]map[string]metrics.Timer),
		blank:                      true,
	}

	for _, phase := range api.Phases() {
		pm := &PhaseMetrics{
			RequestStatuses: make(map[RequestStatus]metrics.Meter),
			RequestTimer:    &metrics.NilTimer{},
		}
		for _, s := range RequestStatuses() {
			pm.RequestStatuses[s] = blankMeter
		}
		newMetrics.PhaseMetrics[phase] = pm
		newMetrics.interceptorTimers[phase] = make(map[string]metrics.Timer)
	}
	for _, exchange := range api.Exchanges() {
		em := &ExchangeMetrics{
			RequestStatuses: make(map[RequestStatus]metrics.Meter),
			RequestTimer:    &metrics.NilTimer{},
		}
		for _, s := range RequestStatuses() {
			em.RequestStatuses[s] = blankMeter
		}
		newMetrics.ExchangeMetrics[exchange] = em
	}
	for _, e := range PriceErrors() {
		newMetrics.PriceErrors[e] = blankMeter
	}
	for _, r := range StorageResults() {
		newMetrics.StorageResults[r] = blankMeter
	}

	return newMetrics
}

// NewMetrics creates a new Metrics object with every metric registered in the given registry.
func NewMetrics(registry metrics.Registry) *Metrics {
	newMetrics := NewBlankMetrics(registry)
	newMetrics.blank = false
	newMetrics.ConnectionCounter = metrics.GetOrRegisterCounter("active_connections", registry)
	newMetrics.ConnectionAcceptErrorMeter = metrics.GetOrRegisterMeter("connection_accept_errors", registry)
	newMetrics.ConnectionCloseErrorMeter = metrics.GetOrRegisterMeter("connection_close_errors", registry)
	newMetrics.WinPriceHistogram = metrics.GetOrRegisterHistogram("win_price", registry, metrics.NewExpDecaySample(1028, 0.015))
	newMetrics.StorageTimer = metrics.GetOrRegisterTimer("storage.lookup_time", registry)

	for _, phase := range api.Phases() {
		pm := newMetrics.PhaseMetrics[phase]
		for _, s := range RequestStatuses() {
			pm.RequestStatuses[s] = metrics.GetOrRegisterMeter(fmt.Sprintf("requests.%s.%s", s, phase), registry)
		}
		pm.RequestTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("requests.%s.request_time", phase), registry)
	}
	for _, exchange := range api.Exchanges() {
		em := newMetrics.ExchangeMetrics[exchange]
		for _, s := range RequestStatuses() {
			em.RequestStatuses[s] = metrics.GetOrRegisterMeter(fmt.Sprintf("exchange.%s.requests.%s", exchange, s), registry)
		}
		em.RequestTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("exchange.%s.request_time", exchange), registry)
	}
	for _, e := range PriceErrors() {
		newMetrics.PriceErrors[e] = metrics.GetOrRegisterMeter(fmt.Sprintf("price_errors.%s", e), registry)
	}
	for _, r := range StorageResults() {
		newMetrics.StorageResults[r] = metrics.GetOrRegisterMeter(fmt.Sprintf("storage.%s", r), registry)
	}

	return newMetrics
}

func (me *Metrics) getInterceptorTimer(phase api.Phase, name string) metrics.Timer {
	me.interceptorTimersRWMutex.RLock()
	timer, ok := me.interceptorTimers[phase][name]
	me.interceptorTimersRWMutex.RUnlock()
	if ok {
		return timer
	}

	me.interceptorTimersRWMutex.Lock()
	defer me.interceptorTimersRWMutex.Unlock()
	// Check again as the map may have been updated while we waited for the write lock.
	if timer, ok = me.interceptorTimers[phase][name]; ok {
		return timer
	}
	if me.blank {
		timer = &metrics.NilTimer{}
	} else {
		timer = metrics.GetOrRegisterTimer(fmt.Sprintf("interceptor.%s.%s.request_time", phase, name), me.MetricsRegistry)
	}
	if me.interceptorTimers[phase] == nil {
		me.interceptorTimers[phase] = make(map[string]metrics.Timer)
	}
	me.interceptorTimers[phase][name] = timer
	return timer
}

func (me *Metrics) RecordConnectionAccept(success bool) {
	if success {
		me.ConnectionCounter.Inc(1)
	} else {
		me.ConnectionAcceptErrorMeter.Mark(1)
	}
}

func (me *Metrics) RecordConnectionClose(success bool) {
	if success {
		me.ConnectionCounter.Dec(1)
	} else {
		me.ConnectionCloseErrorMeter.Mark(1)
	}
}

func (me *Metrics) RecordRequest(labels Labels) {
	if pm, ok := me.PhaseMetrics[labels.Phase]; ok {
		if meter, ok := pm.RequestStatuses[labels.RequestStatus]; ok {
			meter.Mark(1)
		}
	}
	if em, ok := me.ExchangeMetrics[labels.Exchange]; ok {
		if meter, ok := em.RequestStatuses[labels.RequestStatus]; ok {
			meter.Mark(1)
		}
	}
}

// RecordRequestTime implements a part of the MetricsEngine interface. The calling code is responsible
// for determining the call duration.
func (me *Metrics) RecordRequestTime(labels Labels, length time.Duration) {
	if pm, ok := me.PhaseMetrics[labels.Phase]; ok {
		pm.RequestTimer.Update(length)
	}
	if em, ok := me.ExchangeMetrics[labels.Exchange]; ok {
		em.RequestTimer.Update(length)
	}
}

func (me *Metrics) RecordInterceptorTime(phase api.Phase, interceptor string, length time.Duration) {
	me.getInterceptorTimer(phase, interceptor).Update(length)
}

func (me *Metrics) RecordPriceError(priceError PriceError) {
	if meter, ok := me.PriceErrors[priceError]; ok {
		meter.Mark(1)
	}
}

// RecordWinPrice stores prices in micros, as go-metrics histograms only hold integers.
func (me *Metrics) RecordWinPrice(price float64) {
	me.WinPriceHistogram.Update(int64(price * api.MicrosPerUnit))
}

func (me *Metrics) RecordStorageLookup(result StorageResult, length time.Duration) {
	if meter, ok := me.StorageResults[result]; ok {
		meter.Mark(1)
	}
	me.StorageTimer.Update(length)
}
