package ports

import (
	"context"

	"github.com/bft-labs/twitstream/internal/domain"
)

// StreamTransport opens long-lived streaming requests.
type StreamTransport interface {
	// Open issues the request and returns once response headers arrive.
	// A non-2xx status is returned as *domain.HTTPStatusError.
	// Cancelling ctx must close the underlying connection promptly, including
	// while the returned body is being read.
	Open(ctx context.Context, req domain.StreamRequest) (*domain.StreamResponse, error)
}
