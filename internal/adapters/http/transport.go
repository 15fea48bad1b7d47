package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/ports"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4 << 10

var errConnectTimeout = errors.New("no response headers in time")

// StreamTransport implements ports.StreamTransport using HTTP.
type StreamTransport struct {
	client         ports.HTTPClient
	logger         ports.Logger
	connectTimeout time.Duration
}

// NewStreamTransport creates a new HTTP stream transport. connectTimeout
// bounds the wait for response headers; zero uses DefaultConnectTimeout.
func NewStreamTransport(client ports.HTTPClient, logger ports.Logger, connectTimeout time.Duration) *StreamTransport {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &StreamTransport{
		client:         client,
		logger:         logger,
		connectTimeout: connectTimeout,
	}
}

// Open issues the streaming GET and returns once response headers arrive.
func (t *StreamTransport) Open(ctx context.Context, sr domain.StreamRequest) (*domain.StreamResponse, error) {
	u := strings.TrimRight(sr.BaseURL, "/") + sr.Endpoint.Path()
	if len(sr.Params) > 0 {
		u += "?" + sr.Params.Encode()
	}

	// The request context outlives Open: it is cancelled when the body is
	// closed or the caller's ctx ends.
	reqCtx, cancel := context.WithCancelCause(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sr.AuthToken)
	req.Header.Set("Accept", "application/json")
	if sr.UserAgent != "" {
		req.Header.Set("User-Agent", sr.UserAgent)
	}

	timer := time.AfterFunc(t.connectTimeout, func() { cancel(errConnectTimeout) })
	resp, err := t.client.Do(req)
	if !timer.Stop() && err == nil {
		// Headers raced the timer; the context is already gone.
		resp.Body.Close()
		err = context.Cause(reqCtx)
	}
	if err != nil {
		cancel(nil)
		return nil, t.classify(ctx, reqCtx, err)
	}

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel(nil)
		t.logger.Debug("stream request rejected",
			ports.Int("status", resp.StatusCode),
			ports.String("url", u),
		)
		return nil, &domain.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return &domain.StreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &streamBody{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

func (t *StreamTransport) classify(ctx, reqCtx context.Context, err error) error {
	if errors.Is(context.Cause(reqCtx), errConnectTimeout) {
		return &domain.TransportTimeoutError{Err: fmt.Errorf("%w after %s", errConnectTimeout, t.connectTimeout)}
	}
	if ctx.Err() != nil {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.TransportTimeoutError{Err: err}
	}
	return fmt.Errorf("open stream: %w", err)
}

// streamBody releases the request context once the body is closed.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelCauseFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel(nil)
	return err
}
