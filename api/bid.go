package api

import (
	"time"

	"github.com/openbidder/bidserver/transport"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// BidRequest is an auction callout decoded from the exchange's wire format.
type BidRequest struct {
	Exchange   Exchange
	HTTP       *transport.Request
	OpenRTB    *openrtb2.BidRequest
	Ping       bool
	ReceivedAt time.Time
}

// ImpByID returns the impression with the given id, or nil.
func (r *BidRequest) ImpByID(id string) *openrtb2.Imp {
	if r.OpenRTB == nil {
		return nil
	}
	for i := range r.OpenRTB.Imp {
		if r.OpenRTB.Imp[i].ID == id {
			return &r.OpenRTB.Imp[i]
		}
	}
	return nil
}

// BidResponse collects the bids placed by interceptors. A response without bids is a no-bid.
type BidResponse struct {
	Cur      string
	SeatBids []openrtb2.SeatBid
	Metadata Metadata
}

func NewBidResponse() *BidResponse {
	return &BidResponse{
		Metadata: Metadata{},
	}
}

// AddBid places a bid under the given seat, creating the seat on first use.
func (r *BidResponse) AddBid(seat string, bid openrtb2.Bid) {
	for i := range r.SeatBids {
		if r.SeatBids[i].Seat == seat {
			r.SeatBids[i].Bid = append(r.SeatBids[i].Bid, bid)
			return
		}
	}
	r.SeatBids = append(r.SeatBids, openrtb2.SeatBid{Seat: seat, Bid: []openrtb2.Bid{bid}})
}

func (r *BidResponse) HasBids() bool {
	for _, sb := range r.SeatBids {
		if len(sb.Bid) > 0 {
			return true
		}
	}
	return false
}

// Bids returns every bid of every seat.
func (r *BidResponse) Bids() []openrtb2.Bid {
	var bids []openrtb2.Bid
	for _, sb := range r.SeatBids {
		bids = append(bids, sb.Bid...)
	}
	return bids
}

// Clear drops all bids, turning the response into a no-bid.
func (r *BidResponse) Clear() {
	r.SeatBids = nil
}
