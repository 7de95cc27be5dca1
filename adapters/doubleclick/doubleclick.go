package doubleclick

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/adapters"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/pricecrypto"
	"github.com/openbidder/bidserver/transport"
)

// Request parameters.
const (
	AdURLParam         = "adurl"
	UserIDParam        = "google_gid"
	PushParam          = "google_push"
	CookieVersionParam = "google_cver"

	// priceUnknown is sent by the exchange when the clearing price macro could not be expanded.
	priceUnknown = "UNKNOWN"
)

// Match redirect parameters.
const (
	NIDParam         = "google_nid"
	HostedMatchParam = "google_hm"
	CookieMatchParam = "google_cm"
	SetCookieParam   = "google_sc"
	UserListParam    = "google_ula"
)

// Adapter is the DoubleClick adapter. Prices are exchanged as pricecrypto tokens.
type Adapter struct {
	crypter       *pricecrypto.Crypter
	priceParam    string
	bindingParams []string
	matchRedirect string
	matchNID      string
	clock         clock.Clock
}

// Builder builds a new instance of the DoubleClick adapter with the given config.
func Builder(cfg config.Exchange) (adapters.Adapter, error) {
	crypter, err := pricecrypto.NewFromBase64(cfg.EncryptionKey, cfg.IntegrityKey)
	if err != nil {
		return nil, fmt.Errorf("doubleclick price keys: %w", err)
	}
	return New(crypter, cfg, clock.New()), nil
}

// New returns the DoubleClick adapter reading request times from clk.
func New(crypter *pricecrypto.Crypter, cfg config.Exchange, clk clock.Clock) *Adapter {
	priceParam := cfg.PriceParam
	if priceParam == "" {
		priceParam = "price"
	}
	return &Adapter{
		crypter:       crypter,
		priceParam:    priceParam,
		bindingParams: append([]string(nil), cfg.BindingParams...),
		matchRedirect: cfg.MatchRedirectURL,
		matchNID:      cfg.MatchNID,
		clock:         clk,
	}
}

func (a *Adapter) Exchange() api.Exchange {
	return api.DoubleClick
}

func (a *Adapter) DecodeBid(req *transport.Request) (*api.BidRequest, error) {
	ortb, ping, err := adapters.ParseOpenRTB(req.Body())
	if err != nil {
		return nil, err
	}
	return &api.BidRequest{
		Exchange:   api.DoubleClick,
		HTTP:       req,
		OpenRTB:    ortb,
		Ping:       ping,
		ReceivedAt: a.clock.Now(),
	}, nil
}

// EncodeBid writes the OpenRTB response. Pings always get a body, so the exchange can read the
// processing time.
func (a *Adapter) EncodeBid(req *api.BidRequest, resp *api.BidResponse, out *transport.Response) error {
	var ext adapters.ResponseExt
	if !req.ReceivedAt.IsZero() {
		elapsed := a.clock.Since(req.ReceivedAt).Milliseconds()
		ext.ProcessingTimeMs = &elapsed
	}
	return adapters.WriteOpenRTB(req, resp, ext, req.Ping, out)
}

func (a *Adapter) DecodeImpression(req *transport.Request) (*api.ImpressionRequest, error) {
	imp := &api.ImpressionRequest{
		Exchange: api.DoubleClick,
		HTTP:     req,
		Binding:  a.binding(req),
	}

	token := req.Param(a.priceParam)
	if token == "" || token == priceUnknown {
		return imp, nil
	}

	micros, err := a.crypter.Decrypt(token, imp.Binding)
	if err != nil {
		glog.Warningf("Rejected price token on %s: %v", req.Path(), err)
		imp.PriceError = err
		return imp, nil
	}
	imp.PriceMicros = micros
	imp.HasPrice = true
	return imp, nil
}

func (a *Adapter) EncodeImpression(req *api.ImpressionRequest, resp *api.ImpressionResponse, out *transport.Response) error {
	return transport.WritePixel(out)
}

// EncryptPrice returns the token the exchange would send for micros. Win notice macros and tests
// use it to produce prices this adapter accepts.
func (a *Adapter) EncryptPrice(micros int64, binding []byte) (string, error) {
	return a.crypter.Encrypt(micros, binding)
}

// binding joins the values of the configured binding parameters, each terminated by a zero byte so
// that moving characters between parameters changes the signature.
func (a *Adapter) binding(req *transport.Request) []byte {
	if len(a.bindingParams) == 0 {
		return nil
	}
	var b []byte
	for _, name := range a.bindingParams {
		b = append(b, req.Param(name)...)
		b = append(b, 0)
	}
	return b
}

func (a *Adapter) DecodeClick(req *transport.Request) (*api.ClickRequest, error) {
	adURL := req.Param(AdURLParam)
	if adURL != "" && !govalidator.IsRequestURL(adURL) {
		return nil, &errortypes.MalformedPayload{Message: fmt.Sprintf("invalid %s %q", AdURLParam, adURL)}
	}
	return &api.ClickRequest{
		Exchange: api.DoubleClick,
		HTTP:     req,
		AdURL:    adURL,
	}, nil
}

func (a *Adapter) EncodeClick(req *api.ClickRequest, resp *api.ClickResponse, out *transport.Response) error {
	if resp.RedirectURL == "" {
		return out.SetStatus(http.StatusOK)
	}
	return out.SetRedirect(resp.RedirectURL)
}

func (a *Adapter) DecodeMatch(req *transport.Request) (*api.MatchRequest, error) {
	match := &api.MatchRequest{
		Exchange: api.DoubleClick,
		HTTP:     req,
		UserID:   req.Param(UserIDParam),
		Push:     req.HasParam(PushParam),
		PushData: req.Param(PushParam),
	}
	if raw := req.Param(CookieVersionParam); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &errortypes.MalformedPayload{Message: fmt.Sprintf("invalid %s %q", CookieVersionParam, raw)}
		}
		match.CookieVersion = &version
	}
	return match, nil
}

// EncodeMatch redirects back to the exchange when there is something to report or a push to echo,
// and answers the pixel otherwise.
func (a *Adapter) EncodeMatch(req *api.MatchRequest, resp *api.MatchResponse, out *transport.Response) error {
	if a.matchRedirect == "" || (!req.Push && !resp.HasOutput()) {
		return transport.WritePixel(out)
	}

	if err := out.SetRedirect(a.matchRedirect); err != nil {
		return err
	}
	nid := resp.CookieMatchNID
	if nid == "" {
		nid = a.matchNID
	}
	params := []struct {
		set   bool
		key   string
		value string
	}{
		{nid != "", NIDParam, nid},
		{req.Push, PushParam, req.PushData},
		{len(resp.HostedMatch) > 0, HostedMatchParam, base64.URLEncoding.EncodeToString(resp.HostedMatch)},
		{resp.CookieMatch, CookieMatchParam, ""},
		{resp.AddCookie, SetCookieParam, ""},
	}
	for _, p := range params {
		if !p.set {
			continue
		}
		if err := out.SetRedirectParam(p.key, p.value); err != nil {
			return err
		}
	}
	for _, list := range resp.UserLists {
		if err := out.AddRedirectParam(UserListParam, userListValue(list)); err != nil {
			return err
		}
	}
	return nil
}

func userListValue(list api.UserList) string {
	if list.Timestamp.IsZero() {
		return strconv.FormatInt(list.ID, 10)
	}
	return strings.Join([]string{strconv.FormatInt(list.ID, 10), strconv.FormatInt(list.Timestamp.Unix(), 10)}, ",")
}
