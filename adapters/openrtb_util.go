package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/transport"
	"github.com/prebid/openrtb/v20/openrtb2"
)

// ParseOpenRTB decodes an OpenRTB 2.x JSON bid request. The payload is sniffed before the full
// unmarshal so that obviously broken payloads are rejected cheaply. ping reports ext.is_ping.
//
// A ping only needs an id; every other request must carry at least one imp.
func ParseOpenRTB(body []byte) (req *openrtb2.BidRequest, ping bool, err error) {
	if len(body) == 0 {
		return nil, false, &errortypes.MalformedPayload{Message: "bid request body is empty"}
	}

	id, err := jsonparser.GetString(body, "id")
	if err != nil || id == "" {
		return nil, false, &errortypes.MalformedPayload{Message: "bid request id is missing"}
	}

	ping, err = jsonparser.GetBoolean(body, "ext", "is_ping")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, false, &errortypes.MalformedPayload{Message: fmt.Sprintf("invalid ext.is_ping: %v", err)}
	}

	req = &openrtb2.BidRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, false, &errortypes.MalformedPayload{Message: fmt.Sprintf("invalid bid request: %v", err)}
	}
	if !ping && len(req.Imp) == 0 {
		return nil, false, &errortypes.MalformedPayload{Message: "bid request has no imps"}
	}
	for i, imp := range req.Imp {
		if imp.ID == "" {
			return nil, false, &errortypes.MalformedPayload{Message: fmt.Sprintf("imp[%d] id is missing", i)}
		}
	}
	return req, ping, nil
}

// ResponseExt is the bidder-defined part of an OpenRTB bid response.
type ResponseExt struct {
	ProcessingTimeMs *int64 `json:"processing_time_ms,omitempty"`
}

// WriteOpenRTB writes resp as an OpenRTB 2.x JSON bid response. A response without bids is answered
// with 204 No Content, unless forceBody is set (pings expect a body).
func WriteOpenRTB(req *api.BidRequest, resp *api.BidResponse, ext ResponseExt, forceBody bool, out *transport.Response) error {
	if !resp.HasBids() && !forceBody {
		if err := out.SetStatus(http.StatusNoContent); err != nil {
			return err
		}
		return out.ResetBody()
	}

	ortb := openrtb2.BidResponse{
		Cur: resp.Cur,
	}
	if req != nil && req.OpenRTB != nil {
		ortb.ID = req.OpenRTB.ID
	}
	for _, sb := range resp.SeatBids {
		if len(sb.Bid) > 0 {
			ortb.SeatBid = append(ortb.SeatBid, sb)
		}
	}
	if ext.ProcessingTimeMs != nil {
		raw, err := json.Marshal(ext)
		if err != nil {
			return err
		}
		ortb.Ext = raw
	}

	body, err := json.Marshal(ortb)
	if err != nil {
		return err
	}
	if err := out.SetStatus(http.StatusOK); err != nil {
		return err
	}
	if err := out.SetHeader("Content-Type", "application/json"); err != nil {
		return err
	}
	return out.SetBody(body)
}
