package endpoints

import (
	"net/http"
	"testing"

	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/interceptor"
	"github.com/openbidder/bidserver/metrics"
	"github.com/openbidder/bidserver/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func get(uri string) *transport.Request {
	return transport.NewRequestBuilder().Method(http.MethodGet).URI(uri).MustBuild()
}

func TestImpressionReceiver(t *testing.T) {
	testCases := []struct {
		description        string
		uri                string
		expectedPriceError metrics.PriceError
		expectedPrice      float64
	}{
		{
			description:   "price",
			uri:           "/impression?price=1.5",
			expectedPrice: 1.5,
		},
		{
			description: "no-price",
			uri:         "/impression",
		},
		{
			description:        "malformed-price",
			uri:                "/impression?price=abc",
			expectedPriceError: metrics.PriceErrorMalformed,
		},
	}

	for _, test := range testCases {
		me := newMetrics(api.PhaseImpression, metrics.RequestStatusOK)
		if test.expectedPriceError != "" {
			me.On("RecordPriceError", test.expectedPriceError).Return()
		}
		var seen *api.ImpressionRequest
		controllers := newControllers()
		controllers.Impression = interceptor.NewController("impression", []interceptor.Interceptor[*api.ImpressionRequest, *api.ImpressionResponse]{
			interceptor.Func[*api.ImpressionRequest, *api.ImpressionResponse](func(chain *interceptor.Chain[*api.ImpressionRequest, *api.ImpressionResponse]) error {
				seen = chain.Request()
				return chain.Proceed()
			}),
		})
		receiver := NewImpressionReceiver(newDeps(controllers, me))

		resp := receive(receiver, get(test.uri))

		assert.Equal(t, http.StatusOK, resp.Status(), test.description)
		assert.Equal(t, "image/gif", resp.Header("Content-Type"), test.description)
		assert.Equal(t, transport.PixelGIF, resp.Body(), test.description)
		if assert.NotNil(t, seen, test.description) {
			assert.Equal(t, test.expectedPrice, seen.Price(), test.description)
			assert.Equal(t, test.expectedPrice != 0, seen.HasPrice, test.description)
		}
		if test.expectedPriceError == "" {
			me.AssertNotCalled(t, "RecordPriceError", mock.Anything)
		}
		me.AssertExpectations(t)
	}
}

func TestImpressionReceiverWrongMethod(t *testing.T) {
	me := newMetrics(api.PhaseImpression, metrics.RequestStatusBadInput)
	receiver := NewImpressionReceiver(newDeps(newControllers(), me))

	resp := receive(receiver, transport.NewRequestBuilder().Method(http.MethodPost).URI("/impression").MustBuild())

	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status())
	assert.Equal(t, "GET", resp.Header("Allow"))
	me.AssertExpectations(t)
}

func TestClickReceiver(t *testing.T) {
	redirect := interceptor.NewNamed("redirect", func(chain *clickChain) error {
		chain.Response().RedirectURL = chain.Request().AdURL
		return chain.Proceed()
	})

	testCases := []struct {
		description      string
		uri              string
		expectedStatus   int
		expectedLocation string
	}{
		{
			description:      "redirect",
			uri:              "/click?adurl=https%3A%2F%2Fads.example.com%2Flanding%3Fc%3D1",
			expectedStatus:   http.StatusFound,
			expectedLocation: "https://ads.example.com/landing?c=1",
		},
		{
			description:    "no-redirect",
			uri:            "/click",
			expectedStatus: http.StatusOK,
		},
	}

	for _, test := range testCases {
		me := newMetrics(api.PhaseClick, metrics.RequestStatusOK)
		controllers := newControllers()
		controllers.Click = interceptor.NewController("click", []clickInterceptor{redirect})
		receiver := NewClickReceiver(newDeps(controllers, me))

		resp := receive(receiver, get(test.uri))

		assert.Equal(t, test.expectedStatus, resp.Status(), test.description)
		assert.Equal(t, test.expectedLocation, resp.Location(), test.description)
		me.AssertExpectations(t)
	}
}

func TestMatchReceiver(t *testing.T) {
	var seen *api.MatchRequest
	controllers := newControllers()
	controllers.Match = interceptor.NewController("match", []interceptor.Interceptor[*api.MatchRequest, *api.MatchResponse]{
		interceptor.Func[*api.MatchRequest, *api.MatchResponse](func(chain *interceptor.Chain[*api.MatchRequest, *api.MatchResponse]) error {
			seen = chain.Request()
			chain.Response().CookieMatch = true
			return chain.Proceed()
		}),
	})

	me := newMetrics(api.PhaseMatch, metrics.RequestStatusOK)
	resp := receive(NewMatchReceiver(newDeps(controllers, me)), get("/match?uid=user-1&push=abc&cver=3"))

	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, transport.PixelGIF, resp.Body())
	if assert.NotNil(t, seen) {
		assert.Equal(t, "user-1", seen.UserID)
		assert.True(t, seen.Push)
		assert.Equal(t, "abc", seen.PushData)
		assert.Equal(t, int64(3), *seen.CookieVersion)
	}
	me.AssertExpectations(t)

	bad := newMetrics(api.PhaseMatch, metrics.RequestStatusBadInput)
	resp = receive(NewMatchReceiver(newDeps(controllers, bad)), get("/match?uid=user-1&cver=x"))

	assert.Equal(t, http.StatusBadRequest, resp.Status())
	bad.AssertExpectations(t)
}
