package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	if l == nil {
		t.Fatal("NewLifecycle returned nil")
	}
	if l.State() != StateIdle {
		t.Errorf("initial state = %v, want StateIdle", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateConnecting, "Connecting"},
		{StateStreaming, "Streaming"},
		{StateReconnecting, "Reconnecting"},
		{StateDisconnected, "Disconnected"},
		{StateFailed, "Failed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to connecting", StateIdle, StateConnecting},
		{"connecting to streaming", StateConnecting, StateStreaming},
		{"connecting to reconnecting", StateConnecting, StateReconnecting},
		{"connecting to disconnected", StateConnecting, StateDisconnected},
		{"connecting to failed", StateConnecting, StateFailed},
		{"streaming to reconnecting", StateStreaming, StateReconnecting},
		{"streaming to disconnected", StateStreaming, StateDisconnected},
		{"streaming to failed", StateStreaming, StateFailed},
		{"reconnecting to connecting", StateReconnecting, StateConnecting},
		{"reconnecting to disconnected", StateReconnecting, StateDisconnected},
		{"disconnected to connecting", StateDisconnected, StateConnecting},
		{"failed to connecting", StateFailed, StateConnecting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err != nil {
				t.Fatalf("TransitionTo() error = %v", err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", l.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to streaming", StateIdle, StateStreaming},
		{"idle to failed", StateIdle, StateFailed},
		{"streaming to connecting", StateStreaming, StateConnecting},
		{"streaming to streaming", StateStreaming, StateStreaming},
		{"reconnecting to streaming", StateReconnecting, StateStreaming},
		{"disconnected to streaming", StateDisconnected, StateStreaming},
		{"disconnected to failed", StateDisconnected, StateFailed},
		{"failed to disconnected", StateFailed, StateDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")

			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("TransitionTo() error = %v, want ErrInvalidTransition", err)
			}
			// State should not change on invalid transition
			if l.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", l.State(), tt.from)
			}
		})
	}
}

func TestLifecycle_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(&mockLogger{}, emitter)

	_ = l.TransitionTo(StateConnecting, "connect")
	_ = l.TransitionTo(StateStreaming, "stream open")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	if events[0].previous != StateIdle || events[0].current != StateConnecting {
		t.Errorf("event 0: got %v->%v, want Idle->Connecting", events[0].previous, events[0].current)
	}
	if events[1].previous != StateConnecting || events[1].current != StateStreaming {
		t.Errorf("event 1: got %v->%v, want Connecting->Streaming", events[1].previous, events[1].current)
	}
	if events[1].reason != "stream open" {
		t.Errorf("event 1 reason = %q, want %q", events[1].reason, "stream open")
	}
}

func TestLifecycle_CanConnect(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateIdle, true},
		{StateConnecting, false},
		{StateStreaming, false},
		{StateReconnecting, false},
		{StateDisconnected, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.state

			got := l.CanConnect()
			if got != tt.want {
				t.Errorf("CanConnect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLifecycle_WaitWithTimeout_Success(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	l.AddWorker()

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.WorkerDone()
	}()

	err := l.WaitWithTimeout(time.Second)
	if err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestLifecycle_WaitWithTimeout_Timeout(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	l.AddWorker()
	// Never call WorkerDone

	err := l.WaitWithTimeout(10 * time.Millisecond)
	if err != domain.ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}

	// Clean up
	l.WorkerDone()
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	var wg sync.WaitGroup

	// Concurrent state reads
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.CanConnect()
			}
		}()
	}

	// Concurrent transitions (some will fail, which is expected)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.TransitionTo(StateConnecting, "test")
			_ = l.TransitionTo(StateStreaming, "test")
		}()
	}

	wg.Wait()
}
