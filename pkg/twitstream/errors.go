package twitstream

import "github.com/bft-labs/twitstream/internal/domain"

// Errors returned by the client. Check them with errors.Is.
var (
	ErrAlreadyConnected  = domain.ErrAlreadyConnected
	ErrNotRunning        = domain.ErrNotRunning
	ErrShutdownTimeout   = domain.ErrShutdownTimeout
	ErrInvalidConfig     = domain.ErrInvalidConfig
	ErrTransportTimeout  = domain.ErrTransportTimeout
	ErrLivenessTimeout   = domain.ErrLivenessTimeout
	ErrStreamInterrupted = domain.ErrStreamInterrupted
	ErrRetryableStatus   = domain.ErrRetryableStatus
	ErrFatalStatus       = domain.ErrFatalStatus
	ErrBufferOverflow    = domain.ErrBufferOverflow
	ErrMalformedRecord   = domain.ErrMalformedRecord
	ErrMaxReconnects     = domain.ErrMaxReconnects
)

// Typed errors carrying details. Retrieve them with errors.As.
type (
	HTTPStatusError      = domain.HTTPStatusError
	MaxReconnectsError   = domain.MaxReconnectsError
	BufferOverflowError  = domain.BufferOverflowError
	MalformedRecordError = domain.MalformedRecordError
	LivenessTimeoutError = domain.LivenessTimeoutError
)

// IsRetryable reports whether err would drive a reconnect.
func IsRetryable(err error) bool {
	return domain.IsRetryable(err)
}
