package transport

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/openbidder/bidserver/errortypes"
)

// ErrResponseFrozen is returned by every setter once the response has been sent.
var ErrResponseFrozen = &errortypes.ResponseFrozen{Message: "response already sent"}

// Response is the mutable response under construction for one request.
//
// A Response is shared by the receiver and every interceptor of the chain, which may run on different
// goroutines once the router gives up waiting. All access is guarded and the response becomes read-only
// when Freeze is called.
type Response struct {
	mu             sync.Mutex
	status         int
	headers        http.Header
	body           bytes.Buffer
	redirect       *url.URL
	redirectParams url.Values
	frozen         bool
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{
		status:         http.StatusOK,
		headers:        http.Header{},
		redirectParams: url.Values{},
	}
}

func (r *Response) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Response) SetStatus(status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.status = status
	return nil
}

func (r *Response) Header(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers.Get(name)
}

// Headers returns a copy of all response headers.
func (r *Response) Headers() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers.Clone()
}

func (r *Response) SetHeader(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.headers.Set(name, value)
	return nil
}

func (r *Response) AddHeader(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.headers.Add(name, value)
	return nil
}

func (r *Response) RemoveHeader(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.headers.Del(name)
	return nil
}

// Write appends to the response body.
func (r *Response) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return 0, ErrResponseFrozen
	}
	return r.body.Write(p)
}

// SetBody replaces the response body.
func (r *Response) SetBody(body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.body.Reset()
	r.body.Write(body)
	return nil
}

func (r *Response) ResetBody() error {
	return r.SetBody(nil)
}

// Body returns a copy of the body written so far.
func (r *Response) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.body.Bytes()...)
}

// SetRedirect turns the response into a 302 to the given location. Query parameters of the location
// are kept; parameters added with SetRedirectParam are appended to them.
func (r *Response) SetRedirect(location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return &errortypes.MalformedPayload{Message: "invalid redirect location: " + err.Error()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.redirect = u
	r.status = http.StatusFound
	return nil
}

// ClearRedirect drops the redirect and its parameters, and restores a 200 status.
func (r *Response) ClearRedirect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.redirect = nil
	r.redirectParams = url.Values{}
	if r.status == http.StatusFound {
		r.status = http.StatusOK
	}
	return nil
}

func (r *Response) HasRedirect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirect != nil
}

func (r *Response) RedirectParam(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirectParams.Get(name)
}

// RedirectParams returns a copy of the parameters that will be appended to the redirect location.
func (r *Response) RedirectParams() url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneValues(r.redirectParams)
}

func (r *Response) SetRedirectParam(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.redirectParams.Set(name, value)
	return nil
}

func (r *Response) AddRedirectParam(name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.redirectParams.Add(name, value)
	return nil
}

func (r *Response) RemoveRedirectParam(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrResponseFrozen
	}
	r.redirectParams.Del(name)
	return nil
}

// Location returns the full redirect location, or "" if no redirect was set.
func (r *Response) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location()
}

func (r *Response) location() string {
	if r.redirect == nil {
		return ""
	}
	u := *r.redirect
	if len(r.redirectParams) > 0 {
		query := u.Query()
		for name, values := range r.redirectParams {
			for _, v := range values {
				query.Add(name, v)
			}
		}
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Freeze makes the response read-only. It is safe to call more than once.
func (r *Response) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Response) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Send freezes the response and writes it to w.
func (r *Response) Send(w http.ResponseWriter) error {
	r.mu.Lock()
	r.frozen = true
	status := r.status
	headers := r.headers.Clone()
	body := append([]byte(nil), r.body.Bytes()...)
	location := r.location()
	r.mu.Unlock()

	for name, values := range headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if location != "" {
		w.Header().Set("Location", location)
	}
	if len(body) > 0 && w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	w.WriteHeader(status)
	if len(body) == 0 || status == http.StatusNoContent || status == http.StatusNotModified {
		return nil
	}
	_, err := w.Write(body)
	return err
}
