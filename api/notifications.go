package api

import (
	"github.com/openbidder/bidserver/transport"
)

// MicrosPerUnit is the fixed-point scale of prices: one currency unit is one million micros.
const MicrosPerUnit = 1000000

// ImpressionRequest is a win notice. The clearing price is only set when the exchange sent one and it
// passed the integrity check; a price that failed decryption is reported in PriceError and never guessed.
type ImpressionRequest struct {
	Exchange    Exchange
	HTTP        *transport.Request
	PriceMicros int64
	HasPrice    bool
	PriceError  error
	Binding     []byte
}

// Price returns the clearing price in currency units.
func (r *ImpressionRequest) Price() float64 {
	return float64(r.PriceMicros) / MicrosPerUnit
}

type ImpressionResponse struct {
	Metadata Metadata
}

func NewImpressionResponse() *ImpressionResponse {
	return &ImpressionResponse{Metadata: Metadata{}}
}

// ClickRequest is a click notification. AdURL is the landing page the exchange asked us to send the
// user to, if any.
type ClickRequest struct {
	Exchange Exchange
	HTTP     *transport.Request
	AdURL    string
}

// ClickResponse redirects the user when RedirectURL is set.
type ClickResponse struct {
	RedirectURL string
	Metadata    Metadata
}

func NewClickResponse() *ClickResponse {
	return &ClickResponse{Metadata: Metadata{}}
}
