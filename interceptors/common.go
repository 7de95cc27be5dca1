package interceptors

import (
	"encoding/json"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/interceptor"
)

// logging traces the rest of the chain at verbosity 2.
type logging[Req, Resp any] struct {
	phase api.Phase
	clock clock.Clock
}

func loggingBuilder[Req, Resp any](phase api.Phase) BuilderFn[Req, Resp] {
	return func(cfg json.RawMessage, deps Deps) (interceptor.Interceptor[Req, Resp], error) {
		return &logging[Req, Resp]{phase: phase, clock: deps.Clock}, nil
	}
}

func (l *logging[Req, Resp]) Execute(chain *interceptor.Chain[Req, Resp]) error {
	start := l.clock.Now()
	remaining := chain.Remaining()
	err := chain.Proceed()
	glog.V(2).Infof("%s: %d interceptors ran in %v, err=%v, request=%+v, response=%+v",
		l.phase, remaining, l.clock.Since(start), err, chain.Request(), chain.Response())
	return err
}

type rejectConfig struct {
	Reason string `json:"reason"`
}

// reject stops the chain, answering the default response.
type reject[Req, Resp any] struct {
	reason string
}

func rejectBuilder[Req, Resp any](cfg json.RawMessage, deps Deps) (interceptor.Interceptor[Req, Resp], error) {
	var c rejectConfig
	if err := parseConfig(cfg, &c); err != nil {
		return nil, err
	}
	if c.Reason == "" {
		c.Reason = "rejected by configuration"
	}
	return &reject[Req, Resp]{reason: c.Reason}, nil
}

func (r *reject[Req, Resp]) Execute(chain *interceptor.Chain[Req, Resp]) error {
	return &errortypes.Rejected{Reason: r.reason}
}
