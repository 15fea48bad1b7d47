package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/framer"
	"github.com/bft-labs/twitstream/internal/ports"
)

// Unlimited disables the reconnect bound of a connect loop.
const Unlimited = -1

// Default session configuration values.
const (
	DefaultDataTimeout   = 30 * time.Second
	DefaultReadChunkSize = 32 << 10
)

// SupervisorConfig contains configuration for the connect loop.
type SupervisorConfig struct {
	BaseURL   string
	Endpoint  domain.Endpoint
	AuthToken string
	UserAgent string

	// DataTimeout closes a session that receives no bytes for this long.
	DataTimeout time.Duration

	MaxBufferBytes   int
	FlushPartialLine bool

	// ReconnectOnClose treats a clean end of stream as retryable instead of
	// ending the connect loop.
	ReconnectOnClose bool

	// RetryReadErrors reconnects after a read failure on an open stream
	// (connection reset, unexpected EOF). By default such failures end the
	// connect loop.
	RetryReadErrors bool

	ReadChunkSize int
}

// ConnectParams are the per call arguments of Connect.
type ConnectParams struct {
	Params url.Values

	// MaxReconnects bounds the number of attempts after the first one.
	// Use Unlimited (or any negative value) to retry forever.
	MaxReconnects int
}

// SessionInfo describes one connection attempt.
type SessionInfo struct {
	ID        string
	Attempt   int
	StartedAt time.Time
}

// ReconnectInfo describes a scheduled reconnect.
type ReconnectInfo struct {
	Err     error
	Delay   time.Duration
	Attempt int
}

// SessionEmitter receives session lifecycle and record notifications.
// Calls are made synchronously from the connect loop, except OnDisconnected
// which runs on the goroutine calling Disconnect.
type SessionEmitter interface {
	StateEmitter
	OnConnected(info SessionInfo)
	OnReconnecting(info ReconnectInfo)
	OnReconnected(info SessionInfo)
	OnDisconnected()
	OnClose(info SessionInfo, err error)
	OnRecord(rec domain.Record)
	OnStreamError(err error)
}

// session is one attempt to hold an open connection. Its cancel handle is
// owned by the supervisor only while the session is current.
type session struct {
	info   SessionInfo
	cancel context.CancelCauseFunc
}

// Supervisor owns the connect, backoff and reconnect loop of one stream.
type Supervisor struct {
	cfg       SupervisorConfig
	transport ports.StreamTransport
	backoff   BackoffPolicy
	logger    ports.Logger
	emitter   SessionEmitter
	lifecycle *Lifecycle
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{} // closed by Disconnect for the running loop
	current *session
}

// NewSupervisor creates a supervisor with the given dependencies.
func NewSupervisor(
	cfg SupervisorConfig,
	transport ports.StreamTransport,
	backoff BackoffPolicy,
	logger ports.Logger,
	emitter SessionEmitter,
) *Supervisor {
	if cfg.DataTimeout <= 0 {
		cfg.DataTimeout = DefaultDataTimeout
	}
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = DefaultReadChunkSize
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = domain.EndpointSample
	}
	if backoff == nil {
		backoff = NewRateLimitPolicy(ShapeLogarithmic)
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Supervisor{
		cfg:       cfg,
		transport: transport,
		backoff:   backoff,
		logger:    logger,
		emitter:   emitter,
		lifecycle: NewLifecycle(logger, emitter),
		now:       time.Now,
	}
}

// State returns the current session state.
func (s *Supervisor) State() State {
	return s.lifecycle.State()
}

// Lifecycle returns the state machine driven by the connect loop.
func (s *Supervisor) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// Connect runs the connect loop until the stream closes cleanly, Disconnect
// is called, a fatal error occurs or the attempts are exhausted.
//
// It returns nil on a clean close or Disconnect, ctx.Err() when ctx ends,
// a *domain.MaxReconnectsError when attempts run out and the fatal error
// otherwise.
func (s *Supervisor) Connect(ctx context.Context, p ConnectParams) error {
	s.mu.Lock()
	if s.running || !s.lifecycle.CanConnect() {
		s.mu.Unlock()
		return domain.ErrAlreadyConnected
	}
	s.running = true
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.stop = nil
		s.mu.Unlock()
	}()

	var (
		attempt int
		lastErr error
	)
	for p.MaxReconnects < 0 || attempt <= p.MaxReconnects {
		attempt++
		lastAttempt := s.now()

		err := s.runSession(ctx, stop, attempt, p.Params)
		if err == nil {
			if !s.cfg.ReconnectOnClose {
				s.transition(StateDisconnected, "stream closed")
				return nil
			}
			err = &domain.StreamReadError{Err: io.EOF}
		}

		switch {
		case errors.Is(err, domain.ErrCancelled):
			s.transition(StateDisconnected, "disconnect requested")
			return nil
		case ctx.Err() != nil:
			s.transition(StateDisconnected, "context done")
			return ctx.Err()
		case !s.retryable(err):
			s.logger.Error("stream failed",
				ports.Err(err),
				ports.Attempt(attempt),
			)
			s.transition(StateFailed, err.Error())
			return err
		}

		lastErr = err
		if p.MaxReconnects >= 0 && attempt > p.MaxReconnects {
			break
		}

		delay := s.backoff.Backoff(domain.ResponseOf(err), lastAttempt)
		s.transition(StateReconnecting, err.Error())
		s.logger.Warn("reconnecting",
			ports.Err(err),
			ports.Attempt(attempt),
			ports.Duration("delay", delay),
		)
		s.emitter.OnReconnecting(ReconnectInfo{Err: err, Delay: delay, Attempt: attempt})

		if err := s.sleep(ctx, stop, delay); err != nil {
			s.transition(StateDisconnected, "cancelled during backoff")
			if errors.Is(err, domain.ErrCancelled) {
				return nil
			}
			return err
		}
	}

	err := &domain.MaxReconnectsError{Attempts: attempt, Last: lastErr}
	s.logger.Error("giving up", ports.Err(err))
	s.transition(StateFailed, "max reconnects exceeded")
	return err
}

// Disconnect cancels the running connect loop, if any, and reports whether
// an in-flight session was cancelled. It is idempotent and safe to call from
// any goroutine.
func (s *Supervisor) Disconnect() bool {
	s.mu.Lock()
	if s.stop != nil {
		select {
		case <-s.stop:
		default:
			close(s.stop)
		}
	}
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur != nil {
		cur.cancel(domain.ErrCancelled)
	}

	s.logger.Info("disconnected", ports.Bool("active_session", cur != nil))
	s.emitter.OnDisconnected()
	return cur != nil
}

// runSession makes one connection attempt and streams until it ends.
// A nil return means the server closed the stream cleanly.
func (s *Supervisor) runSession(ctx context.Context, stop <-chan struct{}, attempt int, params url.Values) error {
	s.transition(StateConnecting, fmt.Sprintf("attempt %d", attempt))

	sessCtx, cancel := context.WithCancelCause(ctx)
	sess := &session{
		info: SessionInfo{
			ID:        uuid.NewString(),
			Attempt:   attempt,
			StartedAt: s.now(),
		},
		cancel: cancel,
	}

	s.mu.Lock()
	select {
	case <-stop:
		s.mu.Unlock()
		cancel(domain.ErrCancelled)
		return domain.ErrCancelled
	default:
	}
	s.current = sess
	s.mu.Unlock()
	defer s.release(sess)

	s.logger.Info("connecting",
		ports.Session(sess.info.ID),
		ports.Attempt(attempt),
		ports.Endpoint(string(s.cfg.Endpoint)),
	)

	resp, err := s.transport.Open(sessCtx, domain.StreamRequest{
		BaseURL:   s.cfg.BaseURL,
		Endpoint:  s.cfg.Endpoint,
		AuthToken: s.cfg.AuthToken,
		UserAgent: s.cfg.UserAgent,
		Params:    params,
	})
	if err != nil {
		return causeOr(sessCtx, err)
	}
	defer resp.Body.Close()

	s.transition(StateStreaming, "stream open")
	s.logger.Info("stream connected",
		ports.Session(sess.info.ID),
		ports.Int("status", resp.StatusCode),
	)
	s.emitter.OnConnected(sess.info)
	if attempt > 1 {
		s.emitter.OnReconnected(sess.info)
	}

	err = s.stream(sessCtx, sess, resp.Body)
	s.emitter.OnClose(sess.info, err)
	return err
}

type chunk struct {
	data []byte
	err  error
}

// stream frames the body until it ends, resetting the liveness timer on
// every chunk.
func (s *Supervisor) stream(ctx context.Context, sess *session, body io.Reader) error {
	fr := framer.New(framer.Options{
		MaxBufferBytes:   s.cfg.MaxBufferBytes,
		FlushPartialLine: s.cfg.FlushPartialLine,
	})

	chunks := make(chan chunk)
	go readChunks(ctx, body, s.cfg.ReadChunkSize, chunks)

	timeout := s.cfg.DataTimeout
	liveness := time.NewTimer(timeout)
	defer liveness.Stop()

	for {
		select {
		case <-ctx.Done():
			return causeOr(ctx, ctx.Err())

		case <-liveness.C:
			cause := &domain.LivenessTimeoutError{Timeout: timeout}
			sess.cancel(cause)
			s.logger.Warn("stream stalled",
				ports.Session(sess.info.ID),
				ports.Duration("timeout", timeout),
			)
			return cause

		case c := <-chunks:
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					recs, _ := fr.Flush()
					s.dispatch(recs)
					return nil
				}
				if ctx.Err() != nil {
					return causeOr(ctx, ctx.Err())
				}
				return &domain.StreamReadError{Err: c.err}
			}

			resetTimer(liveness, timeout)
			recs, err := fr.Feed(c.data)
			s.dispatch(recs)
			if err != nil {
				return err
			}
		}
	}
}

func (s *Supervisor) dispatch(recs []domain.Record) {
	for _, rec := range recs {
		if rec.Kind == domain.KindMalformed {
			s.logger.Debug("malformed record", ports.Err(rec.Err))
			s.emitter.OnStreamError(rec.Err)
			continue
		}
		s.emitter.OnRecord(rec)
	}
}

// release tears the session down. The cancel handle is dropped from the
// supervisor unless Disconnect already took it.
func (s *Supervisor) release(sess *session) {
	s.mu.Lock()
	if s.current == sess {
		s.current = nil
	}
	s.mu.Unlock()
	sess.cancel(context.Canceled)
}

// sleep waits for d unless the loop is stopped or ctx ends.
func (s *Supervisor) sleep(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-stop:
		return domain.ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryable extends domain.IsRetryable with the read failures the
// configuration opts into.
func (s *Supervisor) retryable(err error) bool {
	if domain.IsRetryable(err) {
		return true
	}
	var readErr *domain.StreamReadError
	if !errors.As(err, &readErr) {
		return false
	}
	if errors.Is(readErr.Err, io.EOF) {
		return s.cfg.ReconnectOnClose
	}
	return s.cfg.RetryReadErrors
}

func (s *Supervisor) transition(to State, reason string) {
	if err := s.lifecycle.TransitionTo(to, reason); err != nil {
		s.logger.Debug("ignored state transition", ports.Err(err))
	}
}

// readChunks copies body reads onto out until an error. It stops early when
// ctx ends so a torn down session never leaks the goroutine.
func readChunks(ctx context.Context, body io.Reader, size int, out chan<- chunk) {
	buf := make([]byte, size)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- chunk{data: data}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case out <- chunk{err: err}:
			case <-ctx.Done():
			}
			return
		}
	}
}

// causeOr maps a session context cancellation to its cause.
func causeOr(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	switch {
	case cause == nil:
		return err
	case errors.Is(cause, domain.ErrCancelled), errors.Is(cause, domain.ErrLivenessTimeout):
		return cause
	}
	return err
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

type noopEmitter struct{}

func (noopEmitter) OnStateChange(previous, current State, reason string) {}
func (noopEmitter) OnConnected(info SessionInfo)                         {}
func (noopEmitter) OnReconnecting(info ReconnectInfo)                    {}
func (noopEmitter) OnReconnected(info SessionInfo)                       {}
func (noopEmitter) OnDisconnected()                                      {}
func (noopEmitter) OnClose(info SessionInfo, err error)                  {}
func (noopEmitter) OnRecord(rec domain.Record)                           {}
func (noopEmitter) OnStreamError(err error)                              {}
