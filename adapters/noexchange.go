package adapters

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/pricecrypto"
	"github.com/openbidder/bidserver/transport"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// Parameter names of the plain notification codecs.
const (
	NoExchangePriceParam  = "price"
	NoExchangeAdURLParam  = "adurl"
	NoExchangeUserParam   = "uid"
	NoExchangePushParam   = "push"
	NoExchangeCookieParam = "cver"
)

// NoExchangeAdapter is the adapter of api.NoExchange. It speaks OpenRTB JSON for bids and plain query
// parameters for notifications, with prices in clear text. It only exists for tests and harnesses and
// is never built for a production exchange.
type NoExchangeAdapter struct{}

func NewNoExchangeAdapter() *NoExchangeAdapter {
	return &NoExchangeAdapter{}
}

// NoExchangeBuilder builds the NoExchange adapter. The configuration is not used.
func NoExchangeBuilder(cfg config.Exchange) (Adapter, error) {
	return NewNoExchangeAdapter(), nil
}

func (a *NoExchangeAdapter) Exchange() api.Exchange {
	return api.NoExchange
}

func (a *NoExchangeAdapter) DecodeBid(req *transport.Request) (*api.BidRequest, error) {
	ortb, ping, err := ParseOpenRTB(req.Body())
	if err != nil {
		return nil, err
	}
	return &api.BidRequest{
		Exchange: api.NoExchange,
		HTTP:     req,
		OpenRTB:  ortb,
		Ping:     ping,
	}, nil
}

func (a *NoExchangeAdapter) EncodeBid(req *api.BidRequest, resp *api.BidResponse, out *transport.Response) error {
	return WriteOpenRTB(req, resp, ResponseExt{}, req != nil && req.Ping, out)
}

func (a *NoExchangeAdapter) DecodeImpression(req *transport.Request) (*api.ImpressionRequest, error) {
	imp := &api.ImpressionRequest{
		Exchange: api.NoExchange,
		HTTP:     req,
	}
	raw := req.Param(NoExchangePriceParam)
	if raw == "" {
		return imp, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || price < 0 || price > pricecrypto.MaxUnits {
		imp.PriceError = &errortypes.MalformedToken{Message: fmt.Sprintf("invalid price %q", raw)}
		return imp, nil
	}
	imp.PriceMicros = pricecrypto.MicrosFromUnits(price)
	imp.HasPrice = true
	return imp, nil
}

func (a *NoExchangeAdapter) EncodeImpression(req *api.ImpressionRequest, resp *api.ImpressionResponse, out *transport.Response) error {
	return transport.WritePixel(out)
}

func (a *NoExchangeAdapter) DecodeClick(req *transport.Request) (*api.ClickRequest, error) {
	return &api.ClickRequest{
		Exchange: api.NoExchange,
		HTTP:     req,
		AdURL:    req.Param(NoExchangeAdURLParam),
	}, nil
}

func (a *NoExchangeAdapter) EncodeClick(req *api.ClickRequest, resp *api.ClickResponse, out *transport.Response) error {
	if resp.RedirectURL == "" {
		return out.SetStatus(http.StatusOK)
	}
	return out.SetRedirect(resp.RedirectURL)
}

func (a *NoExchangeAdapter) DecodeMatch(req *transport.Request) (*api.MatchRequest, error) {
	match := &api.MatchRequest{
		Exchange: api.NoExchange,
		HTTP:     req,
		UserID:   req.Param(NoExchangeUserParam),
		Push:     req.HasParam(NoExchangePushParam),
		PushData: req.Param(NoExchangePushParam),
	}
	if raw := req.Param(NoExchangeCookieParam); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &errortypes.MalformedPayload{Message: fmt.Sprintf("invalid cookie version %q", raw)}
		}
		match.CookieVersion = &v
	}
	return match, nil
}

func (a *NoExchangeAdapter) EncodeMatch(req *api.MatchRequest, resp *api.MatchResponse, out *transport.Response) error {
	return transport.WritePixel(out)
}

// BidHTTPRequest builds the transport request DecodeBid expects for ortb.
func (a *NoExchangeAdapter) BidHTTPRequest(ortb *openrtb2.BidRequest) (*transport.Request, error) {
	body, err := json.Marshal(ortb)
	if err != nil {
		return nil, err
	}
	return transport.NewRequestBuilder().
		Method(http.MethodPost).
		URI("/bid").
		AddHeader("Content-Type", "application/json").
		Body(body).
		Build()
}

// ImpressionHTTPRequest builds the transport request DecodeImpression expects for req.
func (a *NoExchangeAdapter) ImpressionHTTPRequest(req *api.ImpressionRequest) (*transport.Request, error) {
	q := url.Values{}
	if req.HasPrice {
		q.Set(NoExchangePriceParam, strconv.FormatFloat(req.Price(), 'f', -1, 64))
	}
	return notificationRequest("/impression", q)
}

// ClickHTTPRequest builds the transport request DecodeClick expects for req.
func (a *NoExchangeAdapter) ClickHTTPRequest(req *api.ClickRequest) (*transport.Request, error) {
	q := url.Values{}
	if req.AdURL != "" {
		q.Set(NoExchangeAdURLParam, req.AdURL)
	}
	return notificationRequest("/click", q)
}

// MatchHTTPRequest builds the transport request DecodeMatch expects for req.
func (a *NoExchangeAdapter) MatchHTTPRequest(req *api.MatchRequest) (*transport.Request, error) {
	q := url.Values{}
	if req.UserID != "" {
		q.Set(NoExchangeUserParam, req.UserID)
	}
	if req.Push {
		q.Set(NoExchangePushParam, req.PushData)
	}
	if req.CookieVersion != nil {
		q.Set(NoExchangeCookieParam, strconv.FormatInt(*req.CookieVersion, 10))
	}
	return notificationRequest("/match", q)
}

func notificationRequest(path string, q url.Values) (*transport.Request, error) {
	uri := path
	if len(q) > 0 {
		uri += "?" + q.Encode()
	}
	return transport.NewRequestBuilder().Method(http.MethodGet).URI(uri).Build()
}
