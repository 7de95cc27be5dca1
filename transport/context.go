package transport

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
)

// AllowedMethodsAttribute is the attribute set by the router on OPTIONS requests.
const AllowedMethodsAttribute = "allowed_methods"

// ReceiverContext bundles one request with its response and request-scoped attributes.
// It is created by the router and lives until the response has been sent.
type ReceiverContext struct {
	ctx      context.Context
	id       string
	request  *Request
	response *Response

	mu         sync.Mutex
	attributes map[string]interface{}
}

// NewReceiverContext creates a context for req. A nil resp is replaced by an empty response.
func NewReceiverContext(ctx context.Context, req *Request, resp *Response) *ReceiverContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if resp == nil {
		resp = NewResponse()
	}
	id := ""
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}
	return &ReceiverContext{
		ctx:        ctx,
		id:         id,
		request:    req,
		response:   resp,
		attributes: make(map[string]interface{}),
	}
}

// Context carries the request deadline.
func (c *ReceiverContext) Context() context.Context {
	return c.ctx
}

// ID uniquely identifies this request in logs.
func (c *ReceiverContext) ID() string {
	return c.id
}

func (c *ReceiverContext) Request() *Request {
	return c.request
}

func (c *ReceiverContext) Response() *Response {
	return c.response
}

func (c *ReceiverContext) Attribute(name string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.attributes[name]
	return v, ok
}

func (c *ReceiverContext) SetAttribute(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[name] = value
}

// AllowedMethods returns the methods the router allows on the requested path.
func (c *ReceiverContext) AllowedMethods() ([]string, bool) {
	v, ok := c.Attribute(AllowedMethodsAttribute)
	if !ok {
		return nil, false
	}
	methods, ok := v.([]string)
	return methods, ok
}

func (c *ReceiverContext) SetAllowedMethods(methods []string) {
	c.SetAttribute(AllowedMethodsAttribute, append([]string(nil), methods...))
}
