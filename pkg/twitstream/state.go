package twitstream

import "github.com/bft-labs/twitstream/internal/app"

// State is the session state of a Client.
type State int

const (
	// StateIdle means Connect has not been called yet.
	StateIdle State = iota

	// StateConnecting means a request is being opened.
	StateConnecting

	// StateStreaming means records are flowing.
	StateStreaming

	// StateReconnecting means the client is waiting before the next attempt.
	StateReconnecting

	// StateDisconnected means the last Connect ended without error.
	StateDisconnected

	// StateFailed means the last Connect ended with an error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateConnecting:
		return StateConnecting
	case app.StateStreaming:
		return StateStreaming
	case app.StateReconnecting:
		return StateReconnecting
	case app.StateDisconnected:
		return StateDisconnected
	case app.StateFailed:
		return StateFailed
	default:
		return StateIdle
	}
}
