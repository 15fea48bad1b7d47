package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors represent error conditions in the twitstream domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyConnected is returned when Connect() is called while a connect loop is running.
	ErrAlreadyConnected = errors.New("twitstream: already connected")

	// ErrNotRunning is returned when Stop() is called on a client that was never started.
	ErrNotRunning = errors.New("twitstream: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("twitstream: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("twitstream: invalid configuration")

	// ErrInvalidTransition is returned when a session state change is not allowed.
	ErrInvalidTransition = errors.New("twitstream: invalid state transition")

	// ErrCancelled marks a session torn down by Disconnect.
	ErrCancelled = errors.New("twitstream: cancelled")

	// ErrTransportTimeout matches connection and response header timeouts.
	ErrTransportTimeout = errors.New("twitstream: transport timeout")

	// ErrLivenessTimeout matches sessions closed because no data arrived in time.
	ErrLivenessTimeout = errors.New("twitstream: no data received")

	// ErrStreamInterrupted matches read failures on an already open stream.
	ErrStreamInterrupted = errors.New("twitstream: stream interrupted")

	// ErrRetryableStatus matches HTTP status errors that drive a reconnect.
	ErrRetryableStatus = errors.New("twitstream: retryable http status")

	// ErrFatalStatus matches HTTP status errors that end the connect loop.
	ErrFatalStatus = errors.New("twitstream: fatal http status")

	// ErrBufferOverflow matches framers that gave up waiting for a line terminator.
	ErrBufferOverflow = errors.New("twitstream: line buffer overflow")

	// ErrFramerClosed is returned by a framer after it failed with an overflow.
	ErrFramerClosed = errors.New("twitstream: framer closed")

	// ErrMalformedRecord matches a single line that is not valid JSON.
	ErrMalformedRecord = errors.New("twitstream: malformed record")

	// ErrMaxReconnects matches a connect loop that ran out of attempts.
	ErrMaxReconnects = errors.New("twitstream: max reconnects exceeded")
)

// retryableStatuses are the HTTP statuses the upstream uses for transient conditions.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	420:                            true, // enhance your calm
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether an HTTP status should drive a reconnect.
func IsRetryableStatus(code int) bool {
	return retryableStatuses[code]
}

// HTTPStatusError is returned when the streaming or rules endpoint answers
// with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	Header     http.Header
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Is matches ErrRetryableStatus or ErrFatalStatus depending on the status code.
func (e *HTTPStatusError) Is(target error) bool {
	switch target {
	case ErrRetryableStatus:
		return IsRetryableStatus(e.StatusCode)
	case ErrFatalStatus:
		return !IsRetryableStatus(e.StatusCode)
	}
	return false
}

// Response returns the status and headers for backoff computation.
func (e *HTTPStatusError) Response() *ResponseMeta {
	return &ResponseMeta{StatusCode: e.StatusCode, Header: e.Header}
}

// TransportTimeoutError wraps a network timeout raised while opening a stream.
type TransportTimeoutError struct {
	Err error
}

func (e *TransportTimeoutError) Error() string {
	return fmt.Sprintf("transport timeout: %v", e.Err)
}

func (e *TransportTimeoutError) Unwrap() error { return e.Err }

func (e *TransportTimeoutError) Is(target error) bool { return target == ErrTransportTimeout }

// LivenessTimeoutError is the cause attached to a session closed by its
// liveness timer.
type LivenessTimeoutError struct {
	Timeout time.Duration
}

func (e *LivenessTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s of no data", e.Timeout)
}

func (e *LivenessTimeoutError) Is(target error) bool { return target == ErrLivenessTimeout }

// StreamReadError wraps a read failure on an open stream body.
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("stream read: %v", e.Err)
}

func (e *StreamReadError) Unwrap() error { return e.Err }

func (e *StreamReadError) Is(target error) bool { return target == ErrStreamInterrupted }

// BufferOverflowError is returned by the framer when a partial line grows past
// its bound without a terminator.
type BufferOverflowError struct {
	Limit    int
	Buffered int
}

func (e *BufferOverflowError) Error() string {
	return fmt.Sprintf("stream overproducing data: %d bytes buffered without terminator (limit %d)", e.Buffered, e.Limit)
}

func (e *BufferOverflowError) Is(target error) bool { return target == ErrBufferOverflow }

// MalformedRecordError carries a line that failed to parse as JSON.
type MalformedRecordError struct {
	Raw string
	Err error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %v", e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// MaxReconnectsError is returned when the connect loop exhausts its attempts.
type MaxReconnectsError struct {
	Attempts int
	Last     error
}

func (e *MaxReconnectsError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("max reconnects exceeded (%d)", e.Attempts)
	}
	return fmt.Sprintf("max reconnects exceeded (%d): %v", e.Attempts, e.Last)
}

func (e *MaxReconnectsError) Unwrap() error { return e.Last }

func (e *MaxReconnectsError) Is(target error) bool { return target == ErrMaxReconnects }

// IsRetryable classifies a session error. Timeouts and transient HTTP
// statuses are retryable; everything else, read failures on an open stream
// included, ends the connect loop.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrLivenessTimeout):
		return true
	case errors.Is(err, ErrRetryableStatus):
		return true
	}
	return false
}

// ResponseOf extracts the failing response, if any, from a session error.
func ResponseOf(err error) *ResponseMeta {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Response()
	}
	return nil
}
