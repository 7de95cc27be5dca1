package endpoints

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/openbidder/bidserver/adapters"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/interceptors"
	"github.com/openbidder/bidserver/metrics"
	"github.com/openbidder/bidserver/transport"
)

// Dependencies are shared by the receivers of every phase.
type Dependencies struct {
	Adapter     adapters.Adapter
	Controllers *interceptors.Controllers
	Metrics     metrics.MetricsEngine
	Clock       clock.Clock
}

func (d Dependencies) clock() clock.Clock {
	if d.Clock == nil {
		return clock.New()
	}
	return d.Clock
}

// NewBidReceiver answers auction callouts. Pings are answered without running the interceptors.
func NewBidReceiver(deps Dependencies) transport.Receiver {
	return &phaseReceiver[*api.BidRequest, *api.BidResponse]{
		phase:       api.PhaseBid,
		exchange:    deps.Adapter.Exchange(),
		methods:     []string{http.MethodPost},
		requireBody: true,
		controller:  deps.Controllers.Bid,
		metrics:     deps.Metrics,
		clock:       deps.clock(),
		decode:      deps.Adapter.DecodeBid,
		newResponse: api.NewBidResponse,
		encode:      deps.Adapter.EncodeBid,
		skipChain: func(req *api.BidRequest) bool {
			return req.Ping
		},
		outcome: func(req *api.BidRequest, resp *api.BidResponse) metrics.RequestStatus {
			if req.Ping || resp.HasBids() {
				return metrics.RequestStatusOK
			}
			return metrics.RequestStatusNoBid
		},
	}
}

// NewImpressionReceiver answers win notices. Prices rejected by the adapter are counted here.
func NewImpressionReceiver(deps Dependencies) transport.Receiver {
	return &phaseReceiver[*api.ImpressionRequest, *api.ImpressionResponse]{
		phase:       api.PhaseImpression,
		exchange:    deps.Adapter.Exchange(),
		methods:     []string{http.MethodGet},
		controller:  deps.Controllers.Impression,
		metrics:     deps.Metrics,
		clock:       deps.clock(),
		decode:      deps.Adapter.DecodeImpression,
		newResponse: api.NewImpressionResponse,
		encode:      deps.Adapter.EncodeImpression,
		decoded: func(req *api.ImpressionRequest) {
			if req.PriceError == nil {
				return
			}
			if errortypes.ReadCode(req.PriceError) == errortypes.IntegrityCheckFailedErrorCode {
				deps.Metrics.RecordPriceError(metrics.PriceErrorIntegrity)
			} else {
				deps.Metrics.RecordPriceError(metrics.PriceErrorMalformed)
			}
		},
	}
}

// NewClickReceiver answers click notifications with a redirect when the interceptors chose a
// destination, and an empty 200 otherwise.
func NewClickReceiver(deps Dependencies) transport.Receiver {
	return &phaseReceiver[*api.ClickRequest, *api.ClickResponse]{
		phase:       api.PhaseClick,
		exchange:    deps.Adapter.Exchange(),
		methods:     []string{http.MethodGet},
		controller:  deps.Controllers.Click,
		metrics:     deps.Metrics,
		clock:       deps.clock(),
		decode:      deps.Adapter.DecodeClick,
		newResponse: api.NewClickResponse,
		encode:      deps.Adapter.EncodeClick,
	}
}

// NewMatchReceiver answers cookie match callouts.
func NewMatchReceiver(deps Dependencies) transport.Receiver {
	return &phaseReceiver[*api.MatchRequest, *api.MatchResponse]{
		phase:       api.PhaseMatch,
		exchange:    deps.Adapter.Exchange(),
		methods:     []string{http.MethodGet},
		controller:  deps.Controllers.Match,
		metrics:     deps.Metrics,
		clock:       deps.clock(),
		decode:      deps.Adapter.DecodeMatch,
		newResponse: api.NewMatchResponse,
		encode:      deps.Adapter.EncodeMatch,
	}
}
