package router

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// ContentTypeJSON is the content type set on JSON responses.
	ContentTypeJSON = "application/json"
	// ContentTypeText is the content type set on plain text responses.
	ContentTypeText = "text/plain; charset=utf-8"
)

// Response is the transport-independent result of a dispatch.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// WriteTo copies the response onto w. A zero status is written as 200.
func (resp *Response) WriteTo(w http.ResponseWriter) {
	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// ResponseFactory builds responses for strategies and middleware.
type ResponseFactory interface {
	JSON(status int, v any, header http.Header) (*Response, error)
	Plain(status int, body string, header http.Header) *Response
}

// DefaultResponses is the [ResponseFactory] used when none is configured.
var DefaultResponses ResponseFactory = responses{}

type responses struct{}

func (responses) JSON(status int, v any, header http.Header) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json response: %w", err)
	}
	resp := &Response{Status: status, Header: cloneHeader(header), Body: body}
	resp.Header.Set("Content-Type", ContentTypeJSON)
	return resp, nil
}

func (responses) Plain(status int, body string, header http.Header) *Response {
	resp := &Response{Status: status, Header: cloneHeader(header), Body: []byte(body)}
	resp.Header.Set("Content-Type", ContentTypeText)
	return resp
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	return h.Clone()
}
