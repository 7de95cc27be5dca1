package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/openbidder/bidserver/api"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	m := NewMetrics(registry)

	ensureContains(t, registry, "active_connections", m.ConnectionCounter)
	ensureContains(t, registry, "connection_accept_errors", m.ConnectionAcceptErrorMeter)
	ensureContains(t, registry, "connection_close_errors", m.ConnectionCloseErrorMeter)
	ensureContains(t, registry, "win_price", m.WinPriceHistogram)
	ensureContains(t, registry, "storage.lookup_time", m.StorageTimer)

	ensureContains(t, registry, "requests.ok.bid", m.PhaseMetrics[api.PhaseBid].RequestStatuses[RequestStatusOK])
	ensureContains(t, registry, "requests.nobid.bid", m.PhaseMetrics[api.PhaseBid].RequestStatuses[RequestStatusNoBid])
	ensureContains(t, registry, "requests.badinput.impression", m.PhaseMetrics[api.PhaseImpression].RequestStatuses[RequestStatusBadInput])
	ensureContains(t, registry, "requests.err.click", m.PhaseMetrics[api.PhaseClick].RequestStatuses[RequestStatusErr])
	ensureContains(t, registry, "requests.timeout.match", m.PhaseMetrics[api.PhaseMatch].RequestStatuses[RequestStatusTimeout])
	ensureContains(t, registry, "requests.rejected.bid", m.PhaseMetrics[api.PhaseBid].RequestStatuses[RequestStatusRejected])
	ensureContains(t, registry, "requests.bid.request_time", m.PhaseMetrics[api.PhaseBid].RequestTimer)
	ensureContains(t, registry, "exchange.doubleclick.requests.ok", m.ExchangeMetrics[api.DoubleClick].RequestStatuses[RequestStatusOK])
	ensureContains(t, registry, "exchange.none.requests.badinput", m.ExchangeMetrics[api.NoExchange].RequestStatuses[RequestStatusBadInput])
	ensureContains(t, registry, "exchange.doubleclick.request_time", m.ExchangeMetrics[api.DoubleClick].RequestTimer)

	ensureContains(t, registry, "price_errors.malformed", m.PriceErrors[PriceErrorMalformed])
	ensureContains(t, registry, "price_errors.integrity", m.PriceErrors[PriceErrorIntegrity])
	ensureContains(t, registry, "storage.hit", m.StorageResults[StorageHit])
	ensureContains(t, registry, "storage.timeout", m.StorageResults[StorageTimeout])
}

func TestRecordRequest(t *testing.T) {
	m := NewMetrics(metrics.NewRegistry())

	m.RecordRequest(Labels{Phase: api.PhaseBid, RequestStatus: RequestStatusOK})
	m.RecordRequest(Labels{Phase: api.PhaseBid, RequestStatus: RequestStatusOK})
	m.RecordRequest(Labels{Phase: api.PhaseBid, RequestStatus: RequestStatusNoBid})
	m.RecordRequest(Labels{Phase: api.PhaseMatch, RequestStatus: RequestStatusBadInput})
	m.RecordRequest(Labels{Phase: "unknown", RequestStatus: RequestStatusOK})
	m.RecordRequestTime(Labels{Phase: api.PhaseBid, RequestStatus: RequestStatusOK}, 5*time.Millisecond)

	VerifyMetrics(t, "requests.ok.bid", 2, m.PhaseMetrics[api.PhaseBid].RequestStatuses[RequestStatusOK].Count())
	VerifyMetrics(t, "requests.nobid.bid", 1, m.PhaseMetrics[api.PhaseBid].RequestStatuses[RequestStatusNoBid].Count())
	VerifyMetrics(t, "requests.badinput.match", 1, m.PhaseMetrics[api.PhaseMatch].RequestStatuses[RequestStatusBadInput].Count())
	VerifyMetrics(t, "requests.ok.match", 0, m.PhaseMetrics[api.PhaseMatch].RequestStatuses[RequestStatusOK].Count())
	VerifyMetrics(t, "requests.bid.request_time", 1, m.PhaseMetrics[api.PhaseBid].RequestTimer.Count())
}

func TestRecordRequestByExchange(t *testing.T) {
	m := NewMetrics(metrics.NewRegistry())

	m.RecordRequest(Labels{Phase: api.PhaseBid, Exchange: api.DoubleClick, RequestStatus: RequestStatusOK})
	m.RecordRequest(Labels{Phase: api.PhaseClick, Exchange: api.DoubleClick, RequestStatus: RequestStatusOK})
	m.RecordRequest(Labels{Phase: api.PhaseBid, Exchange: api.DoubleClick, RequestStatus: RequestStatusTimeout})
	m.RecordRequest(Labels{Phase: api.PhaseBid, Exchange: api.NewExchange("unknown"), RequestStatus: RequestStatusOK})
	m.RecordRequestTime(Labels{Phase: api.PhaseMatch, Exchange: api.DoubleClick, RequestStatus: RequestStatusOK}, time.Millisecond)

	dc := m.ExchangeMetrics[api.DoubleClick]
	VerifyMetrics(t, "exchange.doubleclick.requests.ok", 2, dc.RequestStatuses[RequestStatusOK].Count())
	VerifyMetrics(t, "exchange.doubleclick.requests.timeout", 1, dc.RequestStatuses[RequestStatusTimeout].Count())
	VerifyMetrics(t, "exchange.doubleclick.request_time", 1, dc.RequestTimer.Count())
	VerifyMetrics(t, "exchange.none.requests.ok", 0, m.ExchangeMetrics[api.NoExchange].RequestStatuses[RequestStatusOK].Count())
	VerifyMetrics(t, "requests.ok.bid", 2, m.PhaseMetrics[api.PhaseBid].RequestStatuses[RequestStatusOK].Count())
}

func TestRecordConnections(t *testing.T) {
	m := NewMetrics(metrics.NewRegistry())

	m.RecordConnectionAccept(true)
	m.RecordConnectionAccept(true)
	m.RecordConnectionClose(true)
	m.RecordConnectionAccept(false)
	m.RecordConnectionClose(false)

	VerifyMetrics(t, "active_connections", 1, m.ConnectionCounter.Count())
	VerifyMetrics(t, "connection_accept_errors", 1, m.ConnectionAcceptErrorMeter.Count())
	VerifyMetrics(t, "connection_close_errors", 1, m.ConnectionCloseErrorMeter.Count())
}

func TestRecordInterceptorTime(t *testing.T) {
	registry := metrics.NewRegistry()
	m := NewMetrics(registry)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordInterceptorTime(api.PhaseBid, "stored_bid", time.Millisecond)
		}()
	}
	wg.Wait()
	m.RecordInterceptorTime(api.PhaseClick, "click_redirect", time.Millisecond)

	timer, ok := registry.Get("interceptor.bid.stored_bid.request_time").(metrics.Timer)
	if assert.True(t, ok) {
		VerifyMetrics(t, "interceptor.bid.stored_bid.request_time", 10, timer.Count())
	}
	assert.NotNil(t, registry.Get("interceptor.click.click_redirect.request_time"))
}

func TestRecordPricesAndStorage(t *testing.T) {
	m := NewMetrics(metrics.NewRegistry())

	m.RecordPriceError(PriceErrorIntegrity)
	m.RecordPriceError(PriceErrorIntegrity)
	m.RecordPriceError(PriceErrorMalformed)
	m.RecordWinPrice(1.5)
	m.RecordStorageLookup(StorageHit, time.Millisecond)
	m.RecordStorageLookup(StorageTimeout, 10*time.Millisecond)

	VerifyMetrics(t, "price_errors.integrity", 2, m.PriceErrors[PriceErrorIntegrity].Count())
	VerifyMetrics(t, "price_errors.malformed", 1, m.PriceErrors[PriceErrorMalformed].Count())
	VerifyMetrics(t, "win_price.count", 1, m.WinPriceHistogram.Count())
	VerifyMetrics(t, "win_price.max", 1500000, m.WinPriceHistogram.Max())
	VerifyMetrics(t, "storage.hit", 1, m.StorageResults[StorageHit].Count())
	VerifyMetrics(t, "storage.timeout", 1, m.StorageResults[StorageTimeout].Count())
	VerifyMetrics(t, "storage.lookup_time", 2, m.StorageTimer.Count())
}

func TestBlankMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	m := NewBlankMetrics(registry)

	m.RecordRequest(Labels{Phase: api.PhaseBid, RequestStatus: RequestStatusOK})
	m.RecordInterceptorTime(api.PhaseBid, "logging", time.Millisecond)
	m.RecordWinPrice(2)

	assert.Nil(t, registry.Get("requests.ok.bid"))
	assert.Nil(t, registry.Get("interceptor.bid.logging.request_time"))
}

func ensureContains(t *testing.T, registry metrics.Registry, name string, metric interface{}) {
	t.Helper()
	if inRegistry := registry.Get(name); inRegistry == nil {
		t.Errorf("No metric in registry at %s.", name)
	} else if inRegistry != metric {
		t.Errorf("Bad value stored at metric %s.", name)
	}
}

func VerifyMetrics(t *testing.T, name string, expected int64, actual int64) {
	t.Helper()
	if expected != actual {
		t.Errorf("Error in metric %s: expected %d, got %d.", name, expected, actual)
	}
}
