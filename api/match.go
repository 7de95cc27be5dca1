package api

import (
	"sort"
	"time"

	"github.com/openbidder/bidserver/transport"
)

// MatchRequest is a cookie match callout.
type MatchRequest struct {
	Exchange      Exchange
	HTTP          *transport.Request
	UserID        string
	Push          bool
	PushData      string
	CookieVersion *int64
}

// UserList is a user list membership reported back to the exchange.
type UserList struct {
	ID        int64
	Timestamp time.Time
}

// MatchResponse is what the bidder wants the exchange to learn about the user.
type MatchResponse struct {
	// CookieMatchNID is the network id reported back to the exchange.
	CookieMatchNID string
	// HostedMatch is the bidder's opaque match data, hosted by the exchange.
	HostedMatch []byte
	// CookieMatch asks the exchange to send its own user id back in a later callout.
	CookieMatch bool
	AddCookie   bool
	UserLists   []UserList
	Metadata    Metadata
}

func NewMatchResponse() *MatchResponse {
	return &MatchResponse{Metadata: Metadata{}}
}

// PutUserList adds the user to a list now.
func (r *MatchResponse) PutUserList(id int64) {
	r.PutUserListAt(id, time.Now())
}

// PutUserListAt adds the user to a list, replacing a previous entry for the same list.
func (r *MatchResponse) PutUserListAt(id int64, ts time.Time) {
	for i := range r.UserLists {
		if r.UserLists[i].ID == id {
			r.UserLists[i].Timestamp = ts
			return
		}
	}
	r.UserLists = append(r.UserLists, UserList{ID: id, Timestamp: ts})
	sort.Slice(r.UserLists, func(i, j int) bool { return r.UserLists[i].ID < r.UserLists[j].ID })
}

func (r *MatchResponse) RemoveUserList(id int64) {
	for i := range r.UserLists {
		if r.UserLists[i].ID == id {
			r.UserLists = append(r.UserLists[:i], r.UserLists[i+1:]...)
			return
		}
	}
}

func (r *MatchResponse) ClearUserLists() {
	r.UserLists = nil
}

// HasOutput reports whether anything has to be sent back to the exchange.
func (r *MatchResponse) HasOutput() bool {
	return r.CookieMatchNID != "" || len(r.HostedMatch) > 0 || r.CookieMatch || r.AddCookie || len(r.UserLists) > 0
}

// Reset drops everything the interceptors set.
func (r *MatchResponse) Reset() {
	r.CookieMatchNID = ""
	r.HostedMatch = nil
	r.CookieMatch = false
	r.AddCookie = false
	r.UserLists = nil
}
