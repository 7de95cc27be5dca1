package adapters

import (
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/config"
	"github.com/openbidder/bidserver/transport"
)

// Adapter translates between an exchange's wire protocol and the domain requests and responses the
// interceptors work on. One adapter is active per process.
//
// Decode methods fail with *errortypes.MalformedPayload when the request is structurally invalid for
// the phase. Encode methods must not fail on well-formed domain objects: absent optional fields are
// left out of the wire response. The only encode errors are transport errors, such as writing to a
// response that was already sent.
//
// Adapters are shared by all requests and must be safe for concurrent use.
type Adapter interface {
	// Exchange identifies the exchange this adapter speaks to.
	Exchange() api.Exchange

	DecodeBid(req *transport.Request) (*api.BidRequest, error)
	// EncodeBid writes the bid response. A response without bids is an explicit no-bid.
	EncodeBid(req *api.BidRequest, resp *api.BidResponse, out *transport.Response) error

	// DecodeImpression decodes a win notice. Price confidentiality failures do not fail the decode:
	// they are reported in ImpressionRequest.PriceError and the price is left unset.
	DecodeImpression(req *transport.Request) (*api.ImpressionRequest, error)
	EncodeImpression(req *api.ImpressionRequest, resp *api.ImpressionResponse, out *transport.Response) error

	DecodeClick(req *transport.Request) (*api.ClickRequest, error)
	EncodeClick(req *api.ClickRequest, resp *api.ClickResponse, out *transport.Response) error

	DecodeMatch(req *transport.Request) (*api.MatchRequest, error)
	EncodeMatch(req *api.MatchRequest, resp *api.MatchResponse, out *transport.Response) error
}

// Builder builds an adapter from the exchange section of the configuration.
type Builder func(cfg config.Exchange) (Adapter, error)
