package interceptors

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/interceptor"
	"github.com/openbidder/bidserver/storage"
	"github.com/prebid/openrtb/v20/openrtb2"
)

const (
	defaultStoredBidPrefix = "bid:"
	defaultSeat            = "bidder"
	defaultCurrency        = "USD"
)

type storedBidConfig struct {
	KeyPrefix   string          `json:"key_prefix"`
	Seat        string          `json:"seat"`
	Currency    string          `json:"currency"`
	// BidDefaults is merged under every stored bid, so stored bids only need the fields that vary.
	BidDefaults json.RawMessage `json:"bid_defaults"`
}

// storedBid bids with the OpenRTB bid stored under the tag id of each imp. Imps without a stored bid,
// or whose stored price is below the floor, are not bid on.
type storedBid struct {
	store     storage.Store
	keyPrefix string
	seat      string
	currency  string
	defaults  []byte
}

func storedBidBuilder(cfg json.RawMessage, deps Deps) (interceptor.Interceptor[*api.BidRequest, *api.BidResponse], error) {
	c := storedBidConfig{
		KeyPrefix: defaultStoredBidPrefix,
		Seat:      defaultSeat,
		Currency:  defaultCurrency,
	}
	if err := parseConfig(cfg, &c); err != nil {
		return nil, err
	}
	return &storedBid{
		store:     deps.Store,
		keyPrefix: c.KeyPrefix,
		seat:      c.Seat,
		currency:  c.Currency,
		defaults:  c.BidDefaults,
	}, nil
}

func (s *storedBid) Execute(chain *interceptor.Chain[*api.BidRequest, *api.BidResponse]) error {
	req, resp := chain.Request(), chain.Response()
	if req.OpenRTB == nil {
		return chain.Proceed()
	}

	for _, imp := range req.OpenRTB.Imp {
		if imp.TagID == "" {
			continue
		}
		bid, err := s.lookup(chain, imp)
		if err != nil {
			return err
		}
		if bid == nil {
			continue
		}
		resp.AddBid(s.seat, *bid)
	}
	if resp.HasBids() && resp.Cur == "" {
		resp.Cur = s.currency
	}
	return chain.Proceed()
}

func (s *storedBid) lookup(chain *interceptor.Chain[*api.BidRequest, *api.BidResponse], imp openrtb2.Imp) (*openrtb2.Bid, error) {
	key := s.keyPrefix + imp.TagID
	raw, err := s.store.Get(chain.Context(), key)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(s.defaults) > 0 {
		if raw, err = jsonpatch.MergePatch(s.defaults, raw); err != nil {
			return nil, fmt.Errorf("stored bid %s could not be merged with the bid defaults: %v", key, err)
		}
	}

	var bid openrtb2.Bid
	if err := json.Unmarshal(raw, &bid); err != nil {
		return nil, fmt.Errorf("stored bid %s is not a valid OpenRTB bid: %v", key, err)
	}
	if bid.Price <= 0 || bid.Price < imp.BidFloor {
		glog.V(2).Infof("Stored bid %s at %f does not clear the floor %f of imp %s", key, bid.Price, imp.BidFloor, imp.ID)
		return nil, nil
	}
	bid.ImpID = imp.ID
	if bid.ID == "" {
		bid.ID = imp.ID
	}
	return &bid, nil
}
