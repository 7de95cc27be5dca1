package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/openbidder/bidserver/api"
	"github.com/openbidder/bidserver/errortypes"
	"github.com/openbidder/bidserver/interceptor"
	"github.com/openbidder/bidserver/metrics"
	"github.com/openbidder/bidserver/transport"
)

// phaseReceiver is the request flow shared by every phase: validate the transport request, decode
// it with the adapter, run the interceptors, and encode the result. A failed chain is answered with
// the phase's default response, built from a fresh empty domain response.
type phaseReceiver[Req, Resp any] struct {
	phase       api.Phase
	exchange    api.Exchange
	methods     []string
	requireBody bool
	controller  *interceptor.Controller[Req, Resp]
	metrics     metrics.MetricsEngine
	clock       clock.Clock

	decode      func(req *transport.Request) (Req, error)
	newResponse func() Resp
	encode      func(req Req, resp Resp, out *transport.Response) error
	// decoded, when set, inspects the request before the chain runs.
	decoded func(req Req)
	// skipChain, when set, answers the request without running the interceptors.
	skipChain func(req Req) bool
	// outcome, when set, classifies a successful response.
	outcome func(req Req, resp Resp) metrics.RequestStatus
}

func (p *phaseReceiver[Req, Resp]) Receive(ctx *transport.ReceiverContext) {
	start := p.clock.Now()
	labels := metrics.Labels{
		Phase:         p.phase,
		Exchange:      p.exchange,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		p.metrics.RecordRequest(labels)
		p.metrics.RecordRequestTime(labels, p.clock.Since(start))
	}()

	out := ctx.Response()
	if status, err := p.validate(ctx.Request()); err != nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		p.writeError(ctx, status, err)
		return
	}

	req, err := p.decode(ctx.Request())
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		p.writeError(ctx, errortypes.HTTPStatus(err), err)
		return
	}
	if p.decoded != nil {
		p.decoded(req)
	}

	resp := p.newResponse()
	if p.skipChain == nil || !p.skipChain(req) {
		if err := p.execute(ctx.Context(), req, resp); err != nil {
			labels.RequestStatus = chainStatus(err)
			if errortypes.ReadCode(err) == errortypes.InvalidChainUsageErrorCode {
				glog.Errorf("%s request %s on %s: %v", p.phase, ctx.ID(), p.exchange, err)
				p.writeError(ctx, http.StatusInternalServerError, err)
				return
			}
			if errortypes.IsWarning(err) {
				glog.V(1).Infof("%s request %s on %s answered with the default response: %v", p.phase, ctx.ID(), p.exchange, err)
			} else {
				glog.Errorf("%s request %s on %s answered with the default response: %v", p.phase, ctx.ID(), p.exchange, err)
			}
			resp = p.newResponse()
		}
	}

	if err := p.encode(req, resp, out); err != nil {
		if errors.Is(err, transport.ErrResponseFrozen) || out.Frozen() {
			// The router answered on our behalf once its deadline passed.
			labels.RequestStatus = metrics.RequestStatusTimeout
			glog.V(1).Infof("%s request %s on %s was answered before it completed", p.phase, ctx.ID(), p.exchange)
			return
		}
		labels.RequestStatus = metrics.RequestStatusErr
		glog.Errorf("Failed to encode the %s response %s on %s: %v", p.phase, ctx.ID(), p.exchange, err)
		p.writeError(ctx, http.StatusInternalServerError, err)
		return
	}
	if labels.RequestStatus == metrics.RequestStatusOK && p.outcome != nil {
		labels.RequestStatus = p.outcome(req, resp)
	}
}

func (p *phaseReceiver[Req, Resp]) validate(req *transport.Request) (int, error) {
	allowed := false
	for _, m := range p.methods {
		if req.Method() == m {
			allowed = true
			break
		}
	}
	if !allowed {
		return http.StatusMethodNotAllowed, &errortypes.MalformedPayload{
			Message: fmt.Sprintf("method %s is not allowed on %s requests", req.Method(), p.phase),
		}
	}
	if p.requireBody && req.ContentLength() == 0 {
		return http.StatusBadRequest, &errortypes.MalformedPayload{Message: fmt.Sprintf("%s request body is empty", p.phase)}
	}
	return http.StatusOK, nil
}

// execute runs the interceptors. A panicking interceptor fails the chain like any other business error.
func (p *phaseReceiver[Req, Resp]) execute(ctx context.Context, req Req, resp Resp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errortypes.BusinessLogicFailure{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.controller.Execute(ctx, req, resp)
}

func (p *phaseReceiver[Req, Resp]) writeError(ctx *transport.ReceiverContext, status int, err error) {
	out := ctx.Response()
	out.ClearRedirect()
	out.ResetBody()
	out.RemoveHeader("Content-Type")
	out.SetStatus(status)
	if status == http.StatusMethodNotAllowed {
		out.SetHeader("Allow", strings.Join(p.methods, " "))
	}
	if status < http.StatusInternalServerError {
		out.SetHeader("Content-Type", "text/plain; charset=utf-8")
		out.SetBody([]byte(err.Error()))
	}
}

func chainStatus(err error) metrics.RequestStatus {
	switch errortypes.ReadCode(err) {
	case errortypes.TimeoutErrorCode:
		return metrics.RequestStatusTimeout
	case errortypes.RejectedWarningCode:
		return metrics.RequestStatusRejected
	default:
		return metrics.RequestStatusErr
	}
}
