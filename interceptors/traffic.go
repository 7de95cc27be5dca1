package interceptors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/mssola/user_agent"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/interceptor"
)

const globalLimitKey = "*"

type rateLimitConfig struct {
	MaxPerSecond float64 `json:"max_per_second"`
	Burst        int     `json:"burst"`
	// KeyHeader limits each value of this header separately. Unset, the limit is shared by all requests.
	KeyHeader string `json:"key_header"`
}

// rateLimit rejects the requests over the configured rate.
type rateLimit[Req api.Request, Resp any] struct {
	limiter   *limiter.Limiter
	keyHeader string
}

func rateLimitBuilder[Req api.Request, Resp any](cfg json.RawMessage, deps Deps) (interceptor.Interceptor[Req, Resp], error) {
	var c rateLimitConfig
	if err := parseConfig(cfg, &c); err != nil {
		return nil, err
	}
	if c.MaxPerSecond <= 0 {
		return nil, errors.New("max_per_second must be positive")
	}

	lmt := tollbooth.NewLimiter(c.MaxPerSecond, nil)
	if c.Burst > 0 {
		lmt.SetBurst(c.Burst)
	}
	return &rateLimit[Req, Resp]{limiter: lmt, keyHeader: c.KeyHeader}, nil
}

func (r *rateLimit[Req, Resp]) Execute(chain *interceptor.Chain[Req, Resp]) error {
	key := globalLimitKey
	if r.keyHeader != "" {
		if http := chain.Request().Transport(); http != nil && http.Header(r.keyHeader) != "" {
			key = http.Header(r.keyHeader)
		}
	}
	if r.limiter.LimitReached(key) {
		return &errortypes.Rejected{Reason: fmt.Sprintf("rate limit exceeded for %s", key)}
	}
	return chain.Proceed()
}

type botFilterConfig struct {
	RejectEmpty bool `json:"reject_empty"`
}

// botFilter rejects requests sent by crawlers, so they never count as impressions or clicks.
type botFilter[Req api.Request, Resp any] struct {
	rejectEmpty bool
}

func botFilterBuilder[Req api.Request, Resp any](cfg json.RawMessage, deps Deps) (interceptor.Interceptor[Req, Resp], error) {
	var c botFilterConfig
	if err := parseConfig(cfg, &c); err != nil {
		return nil, err
	}
	return &botFilter[Req, Resp]{rejectEmpty: c.RejectEmpty}, nil
}

func (b *botFilter[Req, Resp]) Execute(chain *interceptor.Chain[Req, Resp]) error {
	var ua string
	if http := chain.Request().Transport(); http != nil {
		ua = http.Header("User-Agent")
	}
	if ua == "" {
		if b.rejectEmpty {
			return &errortypes.Rejected{Reason: "missing user agent"}
		}
		return chain.Proceed()
	}
	if parsed := user_agent.New(ua); parsed.Bot() {
		name, _ := parsed.Browser()
		return &errortypes.Rejected{Reason: fmt.Sprintf("bot user agent %s", name)}
	}
	return chain.Proceed()
}
