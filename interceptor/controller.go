package interceptor

import (
	"context"
)

type options struct {
	timer Timer
}

// Option configures a Controller.
type Option func(*options)

// WithTimer reports the time spent in every interceptor.
func WithTimer(timer Timer) Option {
	return func(o *options) {
		o.timer = timer
	}
}

// Controller holds the ordered interceptor list of one phase. It is built once at startup and is safe
// for concurrent use: every Execute call gets its own chain.
type Controller[Req, Resp any] struct {
	name    string
	entries []entry[Req, Resp]
	timer   Timer
}

// NewController binds interceptors, in the given order, to a controller.
func NewController[Req, Resp any](name string, interceptors []Interceptor[Req, Resp], opts ...Option) *Controller[Req, Resp] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]entry[Req, Resp], 0, len(interceptors))
	for _, i := range interceptors {
		entries = append(entries, entry[Req, Resp]{name: NameOf(i), interceptor: i})
	}

	return &Controller[Req, Resp]{
		name:    name,
		entries: entries,
		timer:   o.timer,
	}
}

func (c *Controller[Req, Resp]) Name() string {
	return c.name
}

// Len returns the number of interceptors.
func (c *Controller[Req, Resp]) Len() int {
	return len(c.entries)
}

// Interceptors returns a copy of the interceptor list.
func (c *Controller[Req, Resp]) Interceptors() []Interceptor[Req, Resp] {
	out := make([]Interceptor[Req, Resp], 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.interceptor)
	}
	return out
}

// Execute runs the interceptors against req and resp.
func (c *Controller[Req, Resp]) Execute(ctx context.Context, req Req, resp Resp) error {
	return c.run(ctx, req, resp, c.timer)
}

func (c *Controller[Req, Resp]) run(ctx context.Context, req Req, resp Resp, timer Timer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	exec := &execution[Req, Resp]{
		ctx:     ctx,
		req:     req,
		resp:    resp,
		entries: c.entries,
		timer:   timer,
	}
	head := &Chain[Req, Resp]{exec: exec}
	err := head.Proceed()
	if exec.misuse != nil {
		return exec.misuse
	}
	return err
}
