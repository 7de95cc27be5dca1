package interceptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openbidder/bidserver/errortypes"
)

// Timer receives the time spent in one interceptor, including the part of the chain it delegated to.
type Timer func(name string, elapsed time.Duration)

type entry[Req, Resp any] struct {
	name        string
	interceptor Interceptor[Req, Resp]
}

// execution is the state shared by every chain handle of one request.
type execution[Req, Resp any] struct {
	ctx     context.Context
	req     Req
	resp    Resp
	entries []entry[Req, Resp]
	timer   Timer
	misuse  error
}

// Chain is the cursor handed to one interceptor. Each interceptor gets its own handle positioned
// right after itself, and the handle may be proceeded at most once.
//
// A Chain is not safe for concurrent use.
type Chain[Req, Resp any] struct {
	exec     *execution[Req, Resp]
	position int
	consumed bool
}

// Request returns the domain request being processed.
func (c *Chain[Req, Resp]) Request() Req {
	return c.exec.req
}

// Response returns the domain response under construction.
func (c *Chain[Req, Resp]) Response() Resp {
	return c.exec.resp
}

// Context carries the request deadline. Interceptors pass it to any collaborator they call.
func (c *Chain[Req, Resp]) Context() context.Context {
	return c.exec.ctx
}

// Remaining returns how many interceptors have not been started yet.
func (c *Chain[Req, Resp]) Remaining() int {
	if c.consumed {
		return 0
	}
	return len(c.exec.entries) - c.position
}

// Proceed runs the rest of the chain. Reaching the end of the chain is a no-op.
//
// A second call on the same handle fails with InvalidChainUsage. The misuse is also recorded on the
// execution, so it is reported by Controller.Execute even if the caller swallows the error.
func (c *Chain[Req, Resp]) Proceed() error {
	if c.consumed {
		err := &errortypes.InvalidChainUsage{
			Message: fmt.Sprintf("proceed called more than once by interceptor %q", c.caller()),
		}
		if c.exec.misuse == nil {
			c.exec.misuse = err
		}
		return err
	}
	c.consumed = true

	if c.position >= len(c.exec.entries) {
		return nil
	}

	e := c.exec.entries[c.position]
	if err := c.exec.ctx.Err(); err != nil {
		return &errortypes.Timeout{Message: fmt.Sprintf("request deadline exceeded before interceptor %q", e.name)}
	}

	next := &Chain[Req, Resp]{exec: c.exec, position: c.position + 1}
	start := time.Now()
	err := e.interceptor.Execute(next)
	if c.exec.timer != nil {
		c.exec.timer(e.name, time.Since(start))
	}
	return classify(e.name, err)
}

func (c *Chain[Req, Resp]) caller() string {
	if c.position == 0 {
		return "controller"
	}
	return c.exec.entries[c.position-1].name
}

// classify keeps the error kinds the receivers act on and wraps everything else as a business failure
// of the named interceptor.
func classify(name string, err error) error {
	if err == nil {
		return nil
	}
	var (
		misuse   *errortypes.InvalidChainUsage
		failure  *errortypes.BusinessLogicFailure
		timeout  *errortypes.Timeout
		rejected *errortypes.Rejected
	)
	switch {
	case errors.As(err, &misuse), errors.As(err, &failure), errors.As(err, &timeout), errors.As(err, &rejected):
		return err
	}
	return &errortypes.BusinessLogicFailure{Interceptor: name, Err: err}
}
