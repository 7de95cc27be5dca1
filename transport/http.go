package transport

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/openbidder/bidserver/errortypes"
)

// IgnoreBody makes FromHTTP leave the request body unread.
const IgnoreBody int64 = -1

// FromHTTP converts an inbound net/http request. Bodies larger than maxBody bytes are rejected;
// maxBody == 0 disables the limit and a negative maxBody leaves the body unread.
//
// Form-encoded bodies are parsed into request parameters after the query parameters.
func FromHTTP(r *http.Request, maxBody int64) (*Request, error) {
	var body []byte
	if r.Body != nil && maxBody >= 0 {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		var err error
		body, err = io.ReadAll(reader)
		if err != nil {
			return nil, &errortypes.MalformedPayload{Message: fmt.Sprintf("failed to read request body: %v", err)}
		}
		if maxBody > 0 && int64(len(body)) > maxBody {
			return nil, &errortypes.MalformedPayload{Message: fmt.Sprintf("request body exceeds %d bytes", maxBody)}
		}
	}

	b := NewRequestBuilder().
		Method(r.Method).
		Protocol(r.Proto).
		Body(body)
	u := *r.URL
	b.uri = &u
	b.mergeQuery = true
	for name, values := range r.Header {
		for _, v := range values {
			b.AddHeader(name, v)
		}
	}

	if isForm(r.Header.Get("Content-Type")) && len(body) > 0 {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, &errortypes.MalformedPayload{Message: fmt.Sprintf("invalid form body: %v", err)}
		}
		for name, values := range form {
			for _, v := range values {
				b.AddParam(name, v)
			}
		}
	}

	req, err := b.Build()
	if err != nil {
		return nil, &errortypes.MalformedPayload{Message: err.Error()}
	}
	return req, nil
}

func isForm(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
