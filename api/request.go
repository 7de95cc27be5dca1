package api

import "github.com/openbidder/bidserver/transport"

// Request is implemented by the request of every phase. Transport is nil for requests built in code.
type Request interface {
	Transport() *transport.Request
}

func (r *BidRequest) Transport() *transport.Request        { return r.HTTP }
func (r *ImpressionRequest) Transport() *transport.Request { return r.HTTP }
func (r *ClickRequest) Transport() *transport.Request      { return r.HTTP }
func (r *MatchRequest) Transport() *transport.Request      { return r.HTTP }
