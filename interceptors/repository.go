package interceptors

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/interceptor"
	"github.com/openbidder/bidserver/metrics"
	"github.com/openbidder/bidserver/storage"
)

// GroupName is the reserved interceptor name which runs a nested list of interceptors as one step.
const GroupName = "group"

// Deps provides the collaborators interceptors may need. They are shared by all requests.
type Deps struct {
	Store   storage.Store
	Metrics metrics.MetricsEngine
	Clock   clock.Clock
}

// BuilderFn builds one interceptor from its configuration, marshalled as JSON.
type BuilderFn[Req, Resp any] func(cfg json.RawMessage, deps Deps) (interceptor.Interceptor[Req, Resp], error)

type (
	BidBuilders        = map[string]BuilderFn[*api.BidRequest, *api.BidResponse]
	ImpressionBuilders = map[string]BuilderFn[*api.ImpressionRequest, *api.ImpressionResponse]
	ClickBuilders      = map[string]BuilderFn[*api.ClickRequest, *api.ClickResponse]
	MatchBuilders      = map[string]BuilderFn[*api.MatchRequest, *api.MatchResponse]
)

// Repository maps interceptor names to their builders, per phase.
type Repository struct {
	Bid        BidBuilders
	Impression ImpressionBuilders
	Click      ClickBuilders
	Match      MatchBuilders
}

// NewRepository returns a repository holding every built-in interceptor.
func NewRepository() *Repository {
	return &Repository{
		Bid: BidBuilders{
			"logging":    loggingBuilder[*api.BidRequest, *api.BidResponse](api.PhaseBid),
			"reject":     rejectBuilder[*api.BidRequest, *api.BidResponse],
			"rate_limit": rateLimitBuilder[*api.BidRequest, *api.BidResponse],
			"stored_bid": storedBidBuilder,
		},
		Impression: ImpressionBuilders{
			"logging":    loggingBuilder[*api.ImpressionRequest, *api.ImpressionResponse](api.PhaseImpression),
			"reject":     rejectBuilder[*api.ImpressionRequest, *api.ImpressionResponse],
			"rate_limit": rateLimitBuilder[*api.ImpressionRequest, *api.ImpressionResponse],
			"bot_filter": botFilterBuilder[*api.ImpressionRequest, *api.ImpressionResponse],
			"win_price":  winPriceBuilder,
		},
		Click: ClickBuilders{
			"logging":        loggingBuilder[*api.ClickRequest, *api.ClickResponse](api.PhaseClick),
			"reject":         rejectBuilder[*api.ClickRequest, *api.ClickResponse],
			"rate_limit":     rateLimitBuilder[*api.ClickRequest, *api.ClickResponse],
			"bot_filter":     botFilterBuilder[*api.ClickRequest, *api.ClickResponse],
			"click_redirect": clickRedirectBuilder,
		},
		Match: MatchBuilders{
			"logging":      loggingBuilder[*api.MatchRequest, *api.MatchResponse](api.PhaseMatch),
			"reject":       rejectBuilder[*api.MatchRequest, *api.MatchResponse],
			"rate_limit":   rateLimitBuilder[*api.MatchRequest, *api.MatchResponse],
			"bot_filter":   botFilterBuilder[*api.MatchRequest, *api.MatchResponse],
			"cookie_match": cookieMatchBuilder,
		},
	}
}

// Controllers holds the interceptor pipeline of every phase.
type Controllers struct {
	Bid        *interceptor.Controller[*api.BidRequest, *api.BidResponse]
	Impression *interceptor.Controller[*api.ImpressionRequest, *api.ImpressionResponse]
	Click      *interceptor.Controller[*api.ClickRequest, *api.ClickResponse]
	Match      *interceptor.Controller[*api.MatchRequest, *api.MatchResponse]
}

// Build creates the controllers listed in cfg. Interceptor times are reported to deps.Metrics.
func (r *Repository) Build(cfg config.Interceptors, deps Deps) (*Controllers, error) {
	if deps.Store == nil {
		deps.Store = storage.EmptyStore{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	var (
		controllers Controllers
		err         error
	)
	if controllers.Bid, err = buildController(api.PhaseBid, cfg.Bid, r.Bid, deps); err != nil {
		return nil, err
	}
	if controllers.Impression, err = buildController(api.PhaseImpression, cfg.Impression, r.Impression, deps); err != nil {
		return nil, err
	}
	if controllers.Click, err = buildController(api.PhaseClick, cfg.Click, r.Click, deps); err != nil {
		return nil, err
	}
	if controllers.Match, err = buildController(api.PhaseMatch, cfg.Match, r.Match, deps); err != nil {
		return nil, err
	}
	return &controllers, nil
}

func buildController[Req, Resp any](phase api.Phase, list []config.InterceptorConfig, builders map[string]BuilderFn[Req, Resp], deps Deps) (*interceptor.Controller[Req, Resp], error) {
	built, err := buildList(phase, list, builders, deps)
	if err != nil {
		return nil, err
	}
	glog.Infof("Built %d interceptors for the %s phase", len(built), phase)

	var opts []interceptor.Option
	if deps.Metrics != nil {
		opts = append(opts, interceptor.WithTimer(func(name string, elapsed time.Duration) {
			deps.Metrics.RecordInterceptorTime(phase, name, elapsed)
		}))
	}
	return interceptor.NewController(string(phase), built, opts...), nil
}

func buildList[Req, Resp any](phase api.Phase, list []config.InterceptorConfig, builders map[string]BuilderFn[Req, Resp], deps Deps) ([]interceptor.Interceptor[Req, Resp], error) {
	built := make([]interceptor.Interceptor[Req, Resp], 0, len(list))
	for _, ic := range list {
		conf, err := json.Marshal(ic.Config)
		if err != nil {
			return nil, fmt.Errorf(`failed to marshal "%s" interceptor config: %s`, ic.Name, err)
		}

		if ic.Name == GroupName {
			group, err := buildGroup(phase, conf, builders, deps)
			if err != nil {
				return nil, err
			}
			built = append(built, group)
			continue
		}

		builder, ok := builders[ic.Name]
		if !ok {
			return nil, fmt.Errorf(`unknown interceptor "%s" for the %s phase`, ic.Name, phase)
		}
		if err := validateConfig(ic.Name, conf); err != nil {
			return nil, fmt.Errorf(`failed to init "%s" interceptor for the %s phase: %s`, ic.Name, phase, err)
		}
		i, err := builder(conf, deps)
		if err != nil {
			return nil, fmt.Errorf(`failed to init "%s" interceptor for the %s phase: %s`, ic.Name, phase, err)
		}
		built = append(built, interceptor.NewNamed(ic.Name, interceptor.Func[Req, Resp](i.Execute)))
	}
	return built, nil
}

type groupConfig struct {
	Name         string                     `json:"name"`
	Interceptors []config.InterceptorConfig `json:"interceptors"`
}

func buildGroup[Req, Resp any](phase api.Phase, conf json.RawMessage, builders map[string]BuilderFn[Req, Resp], deps Deps) (interceptor.Interceptor[Req, Resp], error) {
	var cfg groupConfig
	if err := json.Unmarshal(conf, &cfg); err != nil {
		return nil, fmt.Errorf(`failed to parse "%s" interceptor config: %s`, GroupName, err)
	}
	if cfg.Name == "" {
		cfg.Name = GroupName
	}
	components, err := buildList(phase, cfg.Interceptors, builders, deps)
	if err != nil {
		return nil, err
	}
	return interceptor.NewComposite(cfg.Name, components...), nil
}

func parseConfig(conf json.RawMessage, v interface{}) error {
	if len(conf) == 0 {
		return nil
	}
	return json.Unmarshal(conf, v)
}
