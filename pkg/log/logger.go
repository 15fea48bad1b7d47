package log

import "time"

// Logger is the logging port of the stream client. The connect loop, the
// transports, plugins and the CLI all log through it; the zerolog adapter is
// the production implementation.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// Keys shared by every component, so a session can be followed across the
// loop, the handlers and the CLI output.
const (
	KeySession  = "session"
	KeyAttempt  = "attempt"
	KeyEndpoint = "endpoint"
	KeyError    = "error"
)

// Session tags a line with the id of the stream session it belongs to.
func Session(id string) Field { return Field{Key: KeySession, Value: id} }

// Attempt tags a line with the connect attempt number, counted from 1.
func Attempt(n int) Field { return Field{Key: KeyAttempt, Value: n} }

// Endpoint tags a line with the stream endpoint name.
func Endpoint(name string) Field { return Field{Key: KeyEndpoint, Value: name} }

// String, Int and the other typed constructors build a Field for an
// arbitrary key.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err attaches err under KeyError. A nil err is logged as a null value.
func Err(err error) Field { return Field{Key: KeyError, Value: err} }
