package exchange

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/openbidder/bidserver/adapters"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
)

// BuildAdapter builds the adapter of the one exchange named in cfg. The NoExchange adapter is only
// built when cfg.AllowNoExchange is set.
func BuildAdapter(cfg config.Exchange) (adapters.Adapter, error) {
	return buildAdapter(cfg, newAdapterBuilders())
}

func buildAdapter(cfg config.Exchange, builders map[api.Exchange]adapters.Builder) (adapters.Adapter, error) {
	exchange := api.NewExchange(strings.ToLower(cfg.Name))
	if exchange.IsNoExchange() && !cfg.AllowNoExchange {
		return nil, fmt.Errorf("%v: exchange is only available to tests", exchange)
	}

	builder, builderFound := builders[exchange]
	if !builderFound {
		return nil, fmt.Errorf("%v: builder not registered", exchange)
	}

	adapter, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("%v: %v", exchange, err)
	}
	glog.Infof("Built adapter for exchange %v", exchange)
	return adapter, nil
}

