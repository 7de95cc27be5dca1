package metrics

import (
	"time"

	"github.com/openbidder/bidserver/api"
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordConnectionAccept mock
func (me *MetricsEngineMock) RecordConnectionAccept(success bool) {
	me.Called(success)
}

// RecordConnectionClose mock
func (me *MetricsEngineMock) RecordConnectionClose(success bool) {
	me.Called(success)
}

// RecordRequest mock
func (me *MetricsEngineMock) RecordRequest(labels Labels) {
	me.Called(labels)
}

// RecordRequestTime mock
func (me *MetricsEngineMock) RecordRequestTime(labels Labels, length time.Duration) {
	me.Called(labels, length)
}

// RecordInterceptorTime mock
func (me *MetricsEngineMock) RecordInterceptorTime(phase api.Phase, interceptor string, length time.Duration) {
	me.Called(phase, interceptor, length)
}

// RecordPriceError mock
func (me *MetricsEngineMock) RecordPriceError(priceError PriceError) {
	me.Called(priceError)
}

// RecordWinPrice mock
func (me *MetricsEngineMock) RecordWinPrice(price float64) {
	me.Called(price)
}

// RecordStorageLookup mock
func (me *MetricsEngineMock) RecordStorageLookup(result StorageResult, length time.Duration) {
	me.Called(result, length)
}
