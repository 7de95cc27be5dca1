package api

import (
	"testing"
	"time"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
)

func TestExchange(t *testing.T) {
	assert.True(t, NoExchange.IsNoExchange())
	assert.False(t, DoubleClick.IsNoExchange())
	assert.Equal(t, DoubleClick, NewExchange("doubleclick"))
	assert.Equal(t, "doubleclick", DoubleClick.String())
}

func TestBidResponse(t *testing.T) {
	resp := NewBidResponse()
	assert.False(t, resp.HasBids())

	resp.AddBid("seat-1", openrtb2.Bid{ID: "b1", ImpID: "1", Price: 1.5})
	resp.AddBid("seat-2", openrtb2.Bid{ID: "b2", ImpID: "2", Price: 0.5})
	resp.AddBid("seat-1", openrtb2.Bid{ID: "b3", ImpID: "3", Price: 2})

	assert.True(t, resp.HasBids())
	assert.Len(t, resp.SeatBids, 2)
	assert.Len(t, resp.SeatBids[0].Bid, 2)
	assert.Len(t, resp.Bids(), 3)

	resp.Clear()
	assert.False(t, resp.HasBids())
}

func TestBidRequestImpByID(t *testing.T) {
	req := &BidRequest{OpenRTB: &openrtb2.BidRequest{Imp: []openrtb2.Imp{{ID: "1"}, {ID: "2", TagID: "slot"}}}}

	assert.Equal(t, "slot", req.ImpByID("2").TagID)
	assert.Nil(t, req.ImpByID("3"))
	assert.Nil(t, (&BidRequest{}).ImpByID("1"))
}

func TestImpressionPrice(t *testing.T) {
	req := &ImpressionRequest{PriceMicros: 1500000, HasPrice: true}
	assert.Equal(t, 1.5, req.Price())
}

func TestMatchResponseUserLists(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	resp := NewMatchResponse()
	assert.False(t, resp.HasOutput())

	resp.PutUserListAt(20, ts)
	resp.PutUserListAt(10, ts)
	resp.PutUserListAt(20, ts.Add(time.Hour))

	assert.Equal(t, []UserList{{ID: 10, Timestamp: ts}, {ID: 20, Timestamp: ts.Add(time.Hour)}}, resp.UserLists)
	assert.True(t, resp.HasOutput())

	resp.RemoveUserList(10)
	assert.Equal(t, []UserList{{ID: 20, Timestamp: ts.Add(time.Hour)}}, resp.UserLists)

	resp.CookieMatch = true
	resp.Reset()
	assert.False(t, resp.HasOutput())
}
