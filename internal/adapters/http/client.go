package http

import (
	"net"
	"net/http"
	"time"
)

// Default HTTP client settings.
const (
	DefaultConnectTimeout  = 10 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// NewHTTPClient returns a client for long lived streaming requests. It has
// no overall timeout; only dialing and the wait for response headers are
// bounded by connectTimeout.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			MaxIdleConnsPerHost:   2,
			ForceAttemptHTTP2:     true,
		},
	}
}
