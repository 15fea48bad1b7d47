package domain

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Endpoint selects which streaming resource to open.
type Endpoint string

const (
	// EndpointSample is the sampled stream.
	EndpointSample Endpoint = "sample"

	// EndpointSearch is the filtered stream driven by server side rules.
	EndpointSearch Endpoint = "search"
)

// Path returns the resource path relative to the API base URL.
func (e Endpoint) Path() string {
	return "/tweets/" + string(e) + "/stream"
}

// ParseEndpoint validates an endpoint name.
func ParseEndpoint(s string) (Endpoint, error) {
	switch Endpoint(s) {
	case EndpointSample, EndpointSearch:
		return Endpoint(s), nil
	}
	return "", fmt.Errorf("unknown endpoint %q (want sample or search)", s)
}

// StreamRequest describes one streaming GET.
type StreamRequest struct {
	BaseURL   string
	Endpoint  Endpoint
	AuthToken string
	UserAgent string
	Params    url.Values
}

// StreamResponse is an open streaming response. Body is unbounded; the caller
// must close it.
type StreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ResponseMeta is the status and headers of a failed response, used to shape
// the reconnect delay.
type ResponseMeta struct {
	StatusCode int
	Header     http.Header
}
