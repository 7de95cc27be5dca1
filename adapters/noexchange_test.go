package adapters

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/transport"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xorcare/pointer"
)

func TestNoExchangeBidRoundTrip(t *testing.T) {
	adapter := NewNoExchangeAdapter()
	ortb := &openrtb2.BidRequest{
		ID: "req-1",
		Imp: []openrtb2.Imp{
			{ID: "1", TagID: "slot-1", BidFloor: 0.5, BidFloorCur: "USD"},
			{ID: "2", TagID: "slot-2"},
		},
		TMax: 100,
	}

	httpReq, err := adapter.BidHTTPRequest(ortb)
	require.NoError(t, err)
	decoded, err := adapter.DecodeBid(httpReq)
	require.NoError(t, err)

	assert.Equal(t, api.NoExchange, decoded.Exchange)
	assert.Equal(t, ortb, decoded.OpenRTB)
	assert.False(t, decoded.Ping)
	assert.Same(t, httpReq, decoded.HTTP)
}

func TestNoExchangeImpressionRoundTrip(t *testing.T) {
	adapter := NewNoExchangeAdapter()

	testCases := []struct {
		description string
		in          api.ImpressionRequest
	}{
		{"with-price", api.ImpressionRequest{PriceMicros: 1500000, HasPrice: true}},
		{"small-price", api.ImpressionRequest{PriceMicros: 1, HasPrice: true}},
		{"without-price", api.ImpressionRequest{}},
	}

	for _, test := range testCases {
		httpReq, err := adapter.ImpressionHTTPRequest(&test.in)
		require.NoError(t, err, test.description)
		decoded, err := adapter.DecodeImpression(httpReq)
		require.NoError(t, err, test.description)

		assert.Equal(t, test.in.HasPrice, decoded.HasPrice, test.description)
		assert.Equal(t, test.in.PriceMicros, decoded.PriceMicros, test.description)
		assert.NoError(t, decoded.PriceError, test.description)
	}
}

func TestNoExchangeClickRoundTrip(t *testing.T) {
	adapter := NewNoExchangeAdapter()
	in := &api.ClickRequest{AdURL: "https://advertiser.example.com/landing?a=1&b=2"}

	httpReq, err := adapter.ClickHTTPRequest(in)
	require.NoError(t, err)
	decoded, err := adapter.DecodeClick(httpReq)
	require.NoError(t, err)

	assert.Equal(t, in.AdURL, decoded.AdURL)
}

func TestNoExchangeMatchRoundTrip(t *testing.T) {
	adapter := NewNoExchangeAdapter()
	testCases := []struct {
		description string
		in          api.MatchRequest
	}{
		{"user", api.MatchRequest{UserID: "u-1"}},
		{"push", api.MatchRequest{UserID: "u-1", Push: true, PushData: "state", CookieVersion: pointer.Int64(2)}},
		{"push-without-data", api.MatchRequest{Push: true}},
	}

	for _, test := range testCases {
		httpReq, err := adapter.MatchHTTPRequest(&test.in)
		require.NoError(t, err, test.description)
		decoded, err := adapter.DecodeMatch(httpReq)
		require.NoError(t, err, test.description)

		assert.Equal(t, test.in.UserID, decoded.UserID, test.description)
		assert.Equal(t, test.in.Push, decoded.Push, test.description)
		assert.Equal(t, test.in.PushData, decoded.PushData, test.description)
		assert.Equal(t, test.in.CookieVersion, decoded.CookieVersion, test.description)
	}
}

func TestNoExchangeImpressionBadPrice(t *testing.T) {
	adapter := NewNoExchangeAdapter()

	testCases := []struct {
		description string
		price       string
	}{
		{description: "not-a-number", price: "abc"},
		{description: "negative", price: "-1"},
		{description: "nan", price: "NaN"},
		{description: "infinite", price: "Inf"},
		{description: "negative-infinite", price: "-Inf"},
		{description: "overflowing", price: "1e300"},
		{description: "out-of-float-range", price: "1e400"},
	}

	for _, test := range testCases {
		httpReq := transport.NewRequestBuilder().URI("/impression?price=" + url.QueryEscape(test.price)).MustBuild()

		decoded, err := adapter.DecodeImpression(httpReq)

		require.NoError(t, err, test.description)
		assert.False(t, decoded.HasPrice, test.description)
		assert.Zero(t, decoded.PriceMicros, test.description)
		assert.Equal(t, errortypes.MalformedTokenErrorCode, errortypes.ReadCode(decoded.PriceError), test.description)
	}
}

func TestNoExchangeMatchBadCookieVersion(t *testing.T) {
	adapter := NewNoExchangeAdapter()
	_, err := adapter.DecodeMatch(transport.NewRequestBuilder().URI("/match?cver=x").MustBuild())
	assert.Equal(t, errortypes.MalformedPayloadErrorCode, errortypes.ReadCode(err))
}

func TestNoExchangeEncode(t *testing.T) {
	adapter := NewNoExchangeAdapter()

	out := transport.NewResponse()
	require.NoError(t, adapter.EncodeImpression(&api.ImpressionRequest{}, api.NewImpressionResponse(), out))
	assert.Equal(t, transport.PixelGIF, out.Body())

	out = transport.NewResponse()
	require.NoError(t, adapter.EncodeClick(&api.ClickRequest{}, &api.ClickResponse{RedirectURL: "https://example.com"}, out))
	assert.Equal(t, http.StatusFound, out.Status())
	assert.Equal(t, "https://example.com", out.Location())

	out = transport.NewResponse()
	require.NoError(t, adapter.EncodeClick(&api.ClickRequest{}, api.NewClickResponse(), out))
	assert.Equal(t, http.StatusOK, out.Status())
	assert.False(t, out.HasRedirect())

	out = transport.NewResponse()
	require.NoError(t, adapter.EncodeBid(&api.BidRequest{OpenRTB: &openrtb2.BidRequest{ID: "1"}}, api.NewBidResponse(), out))
	assert.Equal(t, http.StatusNoContent, out.Status())
}
