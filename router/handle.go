package router

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/transport"
)

// NewHandle serves one route with a receiver. The receiver has until timeout to populate the response;
// past that a 503 is sent and whatever the receiver produces later is discarded.
func NewHandle(receiver transport.Receiver, timeout time.Duration, maxBody int64, allowed []string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req, err := transport.FromHTTP(r, maxBody)
		if err != nil {
			http.Error(w, err.Error(), errortypes.HTTPStatus(err))
			return
		}

		ctx, cancel := r.Context(), context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}
		defer cancel()

		rc := transport.NewReceiverContext(ctx, req, nil)
		rc.SetAllowedMethods(allowed)

		done := make(chan struct{})
		go func() {
			defer close(done)
			defer func() {
				if rec := recover(); rec != nil {
					glog.Errorf("Receiver for %s %s panicked on request %s: %v", req.Method(), req.Path(), rc.ID(), rec)
					out := rc.Response()
					out.ClearRedirect()
					out.ResetBody()
					out.SetStatus(http.StatusInternalServerError)
				}
			}()
			receiver.Receive(rc)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			select {
			case <-done:
			default:
				rc.Response().Freeze()
				glog.Warningf("Request %s to %s %s was not answered in %v", rc.ID(), req.Method(), req.Path(), timeout)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		if err := rc.Response().Send(w); err != nil {
			glog.V(1).Infof("Failed to send the response to request %s: %v", rc.ID(), err)
		}
	}
}

// NoCache marks every response as uncacheable.
type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}
