package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Request is a transport-neutral, immutable view of an inbound HTTP request.
//
// A Request is only ever built through a RequestBuilder. Accessors hand out copies of the multi-valued
// collections, so nothing reachable from a Request can be used to mutate it. Body is the one exception:
// it returns the underlying slice to avoid copying bid payloads, and callers must treat it as read-only.
type Request struct {
	method   string
	uri      url.URL
	protocol string
	headers  http.Header
	params   url.Values
	body     []byte
}

// Method returns the HTTP method, upper case.
func (r *Request) Method() string {
	return r.method
}

// URI returns a copy of the request URI.
func (r *Request) URI() *url.URL {
	u := r.uri
	return &u
}

// Path returns the path component of the request URI.
func (r *Request) Path() string {
	return r.uri.Path
}

// Protocol returns the protocol version, e.g. "HTTP/1.1".
func (r *Request) Protocol() string {
	return r.protocol
}

// Header returns the first value of the named header, or "" if absent.
func (r *Request) Header(name string) string {
	return r.headers.Get(name)
}

// Headers returns every value of the named header, in the order received.
func (r *Request) Headers(name string) []string {
	return cloneStrings(r.headers.Values(name))
}

// HeaderNames returns the canonical names of all headers, sorted.
func (r *Request) HeaderNames() []string {
	return sortedKeys(r.headers)
}

// Param returns the first value of the named query or form parameter, or "" if absent.
func (r *Request) Param(name string) string {
	return r.params.Get(name)
}

// Params returns every value of the named parameter, query values first, then form values.
func (r *Request) Params(name string) []string {
	return cloneStrings(r.params[name])
}

// HasParam reports whether the named parameter is present, even with an empty value.
func (r *Request) HasParam(name string) bool {
	_, ok := r.params[name]
	return ok
}

// ParamNames returns the names of all parameters, sorted.
func (r *Request) ParamNames() []string {
	return sortedKeys(r.params)
}

// Body returns the raw request body. The returned slice must not be modified.
func (r *Request) Body() []byte {
	return r.body
}

// ContentLength returns the size of the body in bytes.
func (r *Request) ContentLength() int {
	return len(r.body)
}

// ToBuilder returns a builder seeded with a copy of this request. The builder keeps the query and
// the form parameters apart, so a later call to URI replaces the query parameters only.
func (r *Request) ToBuilder() *RequestBuilder {
	b := NewRequestBuilder().
		Method(r.method).
		Protocol(r.protocol).
		Body(append([]byte(nil), r.body...))
	u := r.uri
	b.uri = &u
	b.headers = r.headers.Clone()
	b.params = cloneValues(r.params)
	// Build merges the query values ahead of the form values.
	query, _ := url.ParseQuery(u.RawQuery)
	for name, values := range query {
		rest := b.params[name]
		if len(rest) < len(values) {
			continue
		}
		if rest = rest[len(values):]; len(rest) == 0 {
			delete(b.params, name)
		} else {
			b.params[name] = rest
		}
	}
	return b
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s %s (%d bytes)", r.method, r.uri.String(), r.protocol, len(r.body))
}

// RequestBuilder is the mutable variant of Request, used for incremental construction.
// A builder can be reused after Build: built requests never observe later changes.
type RequestBuilder struct {
	method     string
	rawURI     string
	uri        *url.URL
	protocol   string
	headers    http.Header
	params     url.Values
	body       []byte
	mergeQuery bool
}

// NewRequestBuilder returns a builder for a GET HTTP/1.1 request to "/".
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{
		method:     http.MethodGet,
		protocol:   "HTTP/1.1",
		headers:    http.Header{},
		params:     url.Values{},
		mergeQuery: true,
	}
}

func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.method = strings.ToUpper(method)
	return b
}

// URI sets the request URI. Query parameters found in the URI become request parameters.
// Parse errors are reported by Build.
func (b *RequestBuilder) URI(rawURI string) *RequestBuilder {
	b.rawURI = rawURI
	b.uri = nil
	b.mergeQuery = true
	return b
}

func (b *RequestBuilder) Protocol(protocol string) *RequestBuilder {
	b.protocol = protocol
	return b
}

func (b *RequestBuilder) AddHeader(name, value string) *RequestBuilder {
	b.headers.Add(name, value)
	return b
}

func (b *RequestBuilder) SetHeader(name, value string) *RequestBuilder {
	b.headers.Set(name, value)
	return b
}

// AddParam appends a parameter value, as if it had been posted in a form.
func (b *RequestBuilder) AddParam(name, value string) *RequestBuilder {
	b.params.Add(name, value)
	return b
}

func (b *RequestBuilder) Body(body []byte) *RequestBuilder {
	b.body = body
	return b
}

// Build finalizes the request. The builder's state is copied.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.method == "" {
		return nil, fmt.Errorf("request method is required")
	}

	var u url.URL
	switch {
	case b.uri != nil:
		u = *b.uri
	case b.rawURI != "":
		parsed, err := url.Parse(b.rawURI)
		if err != nil {
			return nil, fmt.Errorf("invalid request uri %q: %w", b.rawURI, err)
		}
		u = *parsed
	default:
		u = url.URL{Path: "/"}
	}

	params := url.Values{}
	if b.mergeQuery {
		query, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return nil, fmt.Errorf("invalid query string %q: %w", u.RawQuery, err)
		}
		for name, values := range query {
			params[name] = append(params[name], values...)
		}
	}
	for name, values := range b.params {
		params[name] = append(params[name], values...)
	}

	return &Request{
		method:   b.method,
		uri:      u,
		protocol: b.protocol,
		headers:  b.headers.Clone(),
		params:   params,
		body:     append([]byte(nil), b.body...),
	}, nil
}

// MustBuild is like Build but panics on error. Intended for tests and static fixtures.
func (b *RequestBuilder) MustBuild() *Request {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = cloneStrings(v)
	}
	return out
}

func sortedKeys[M ~map[string][]string](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
