package twitstream

import (
	"time"

	"github.com/bft-labs/twitstream/internal/app"
	"github.com/bft-labs/twitstream/internal/domain"
)

// Record is one classified line of the stream.
type Record = domain.Record

// RecordKind classifies a Record.
type RecordKind = domain.RecordKind

// Record kinds.
const (
	KindTweet     = domain.KindTweet
	KindAPIErrors = domain.KindAPIErrors
	KindOther     = domain.KindOther
	KindHeartbeat = domain.KindHeartbeat
	KindMalformed = domain.KindMalformed
)

// StateChangeEvent is emitted when the session state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ConnectedEvent is emitted when a stream request is accepted.
type ConnectedEvent struct {
	SessionID string
	Attempt   int
	StartedAt time.Time
}

// ReconnectingEvent is emitted before sleeping ahead of the next attempt.
type ReconnectingEvent struct {
	Err     error
	Delay   time.Duration
	Attempt int
}

// CloseEvent is emitted when a connected session ends. Err is nil for a
// clean end of stream.
type CloseEvent struct {
	SessionID string
	Attempt   int
	Err       error
}

// EventHandler receives client notifications. Methods are called
// synchronously from the connect loop and must return quickly; a slow
// handler delays reading and can trip the data timeout.
// Embed BaseEventHandler to implement only the methods you need.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnConnected(event ConnectedEvent)
	OnReconnecting(event ReconnectingEvent)
	OnReconnected(event ConnectedEvent)
	OnDisconnected()
	OnClose(event CloseEvent)
	OnTweet(rec Record)
	OnHeartbeat()
	OnAPIErrors(rec Record)
	OnOther(rec Record)
	OnStreamError(err error)
}

// BaseEventHandler provides no-op implementations of every EventHandler method.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnConnected(ConnectedEvent)       {}
func (BaseEventHandler) OnReconnecting(ReconnectingEvent) {}
func (BaseEventHandler) OnReconnected(ConnectedEvent)     {}
func (BaseEventHandler) OnDisconnected()                  {}
func (BaseEventHandler) OnClose(CloseEvent)               {}
func (BaseEventHandler) OnTweet(Record)                   {}
func (BaseEventHandler) OnHeartbeat()                     {}
func (BaseEventHandler) OnAPIErrors(Record)               {}
func (BaseEventHandler) OnOther(Record)                   {}
func (BaseEventHandler) OnStreamError(error)              {}

var _ EventHandler = BaseEventHandler{}

// eventEmitterWrapper adapts EventHandlers to the session emitter.
type eventEmitterWrapper struct {
	handlers []EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	ev := StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	}
	for _, h := range e.handlers {
		h.OnStateChange(ev)
	}
}

func (e *eventEmitterWrapper) OnConnected(info app.SessionInfo) {
	ev := connectedEvent(info)
	for _, h := range e.handlers {
		h.OnConnected(ev)
	}
}

func (e *eventEmitterWrapper) OnReconnecting(info app.ReconnectInfo) {
	ev := ReconnectingEvent{Err: info.Err, Delay: info.Delay, Attempt: info.Attempt}
	for _, h := range e.handlers {
		h.OnReconnecting(ev)
	}
}

func (e *eventEmitterWrapper) OnReconnected(info app.SessionInfo) {
	ev := connectedEvent(info)
	for _, h := range e.handlers {
		h.OnReconnected(ev)
	}
}

func (e *eventEmitterWrapper) OnDisconnected() {
	for _, h := range e.handlers {
		h.OnDisconnected()
	}
}

func (e *eventEmitterWrapper) OnClose(info app.SessionInfo, err error) {
	ev := CloseEvent{SessionID: info.ID, Attempt: info.Attempt, Err: err}
	for _, h := range e.handlers {
		h.OnClose(ev)
	}
}

func (e *eventEmitterWrapper) OnRecord(rec domain.Record) {
	for _, h := range e.handlers {
		switch rec.Kind {
		case domain.KindTweet:
			h.OnTweet(rec)
		case domain.KindHeartbeat:
			h.OnHeartbeat()
		case domain.KindAPIErrors:
			h.OnAPIErrors(rec)
		default:
			h.OnOther(rec)
		}
	}
}

func (e *eventEmitterWrapper) OnStreamError(err error) {
	for _, h := range e.handlers {
		h.OnStreamError(err)
	}
}

func connectedEvent(info app.SessionInfo) ConnectedEvent {
	return ConnectedEvent{SessionID: info.ID, Attempt: info.Attempt, StartedAt: info.StartedAt}
}

var _ app.SessionEmitter = (*eventEmitterWrapper)(nil)
