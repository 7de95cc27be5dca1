package interceptors

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/benbjohnson/clock"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/interceptor"
	"github.com/openbidder/bidserver/metrics"
	"github.com/openbidder/bidserver/storage"
)

// WinPriceKey is the impression response metadata entry holding the cleared price, in currency units.
const WinPriceKey = "win_price"

type clickRedirectConfig struct {
	FallbackURL string `json:"fallback_url"`
}

// clickRedirect sends the user to the ad url of the click, or to the fallback url when there is none.
type clickRedirect struct {
	fallbackURL string
}

func clickRedirectBuilder(cfg json.RawMessage, deps Deps) (interceptor.Interceptor[*api.ClickRequest, *api.ClickResponse], error) {
	var c clickRedirectConfig
	if err := parseConfig(cfg, &c); err != nil {
		return nil, err
	}
	if c.FallbackURL != "" && !govalidator.IsRequestURL(c.FallbackURL) {
		return nil, errors.New("fallback_url must be an absolute url")
	}
	return &clickRedirect{fallbackURL: c.FallbackURL}, nil
}

func (c *clickRedirect) Execute(chain *interceptor.Chain[*api.ClickRequest, *api.ClickResponse]) error {
	resp := chain.Response()
	if resp.RedirectURL == "" {
		resp.RedirectURL = chain.Request().AdURL
	}
	if resp.RedirectURL == "" {
		resp.RedirectURL = c.fallbackURL
	}
	return chain.Proceed()
}

// winPrice records the cleared price of the impression once the rest of the chain is done.
type winPrice struct {
	metrics metrics.MetricsEngine
}

func winPriceBuilder(cfg json.RawMessage, deps Deps) (interceptor.Interceptor[*api.ImpressionRequest, *api.ImpressionResponse], error) {
	if deps.Metrics == nil {
		return nil, errors.New("a metrics engine is required")
	}
	return &winPrice{metrics: deps.Metrics}, nil
}

func (w *winPrice) Execute(chain *interceptor.Chain[*api.ImpressionRequest, *api.ImpressionResponse]) error {
	err := chain.Proceed()
	if req := chain.Request(); req.HasPrice {
		chain.Response().Metadata[WinPriceKey] = req.Price()
		w.metrics.RecordWinPrice(req.Price())
	}
	return err
}

const defaultMatchPrefix = "match:"

type cookieMatchConfig struct {
	KeyPrefix string  `json:"key_prefix"`
	NID       string  `json:"nid"`
	UserLists []int64 `json:"user_lists"`
}

// cookieMatch remembers the users the exchange told us about. A user seen for the first time is stored
// with the current time and the exchange is asked to cookie match.
type cookieMatch struct {
	store     storage.Store
	clock     clock.Clock
	keyPrefix string
	nid       string
	userLists []int64
}

func cookieMatchBuilder(cfg json.RawMessage, deps Deps) (interceptor.Interceptor[*api.MatchRequest, *api.MatchResponse], error) {
	c := cookieMatchConfig{KeyPrefix: defaultMatchPrefix}
	if err := parseConfig(cfg, &c); err != nil {
		return nil, err
	}
	return &cookieMatch{
		store:     deps.Store,
		clock:     deps.Clock,
		keyPrefix: c.KeyPrefix,
		nid:       c.NID,
		userLists: c.UserLists,
	}, nil
}

func (m *cookieMatch) Execute(chain *interceptor.Chain[*api.MatchRequest, *api.MatchResponse]) error {
	req, resp := chain.Request(), chain.Response()
	if req.UserID == "" {
		return chain.Proceed()
	}

	key := m.keyPrefix + req.UserID
	_, err := m.store.Get(chain.Context(), key)
	switch {
	case storage.IsNotFound(err):
		now := m.clock.Now()
		if err := m.store.Put(chain.Context(), key, []byte(strconv.FormatInt(now.Unix(), 10))); err != nil {
			return err
		}
		resp.CookieMatch = true
		for _, id := range m.userLists {
			resp.PutUserListAt(id, now)
		}
	case err != nil:
		return err
	}

	if m.nid != "" {
		resp.CookieMatchNID = m.nid
	}
	return chain.Proceed()
}
