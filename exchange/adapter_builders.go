package exchange

import (
	"github.com/openbidder/bidserver/adapters"
	"github.com/openbidder/bidserver/adapters/doubleclick"
	"github.com/openbidder/bidserver/api"
)

// Adapter registration is kept in this separate file for ease of use and to aid
// in resolving merge conflicts.

func newAdapterBuilders() map[api.Exchange]adapters.Builder {
	return map[api.Exchange]adapters.Builder{
		api.DoubleClick: doubleclick.Builder,
		api.NoExchange:  adapters.NoExchangeBuilder,
	}
}
