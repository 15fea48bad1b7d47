// Package domain contains the core domain entities and value objects for twitstream.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP transport, logging, metrics)
// and contains only pure stream semantics.
//
// # Entities
//
//   - [Record]: One classified line of the stream (tweet, heartbeat, api errors, other, malformed)
//   - [Rule]: A filtered stream rule
//   - [StreamRequest], [StreamResponse]: The boundary with the streaming transport
//
// # Errors
//
// Every failure a session can end with has a sentinel (ErrLivenessTimeout,
// ErrBufferOverflow, ...) and, where it carries data, a typed error that
// matches the sentinel through errors.Is. [IsRetryable] decides whether the
// connect loop tries again.
package domain
