package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RecordKind identifies the variant of a Record. The kind is derived from the
// line content; the stream carries no explicit tag.
type RecordKind int

const (
	KindTweet RecordKind = iota
	KindAPIErrors
	KindOther
	KindHeartbeat
	KindMalformed
)

// String returns the event name used for the kind.
func (k RecordKind) String() string {
	switch k {
	case KindTweet:
		return "tweet"
	case KindAPIErrors:
		return "api-errors"
	case KindOther:
		return "other"
	case KindHeartbeat:
		return "heartbeat"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Record is one parsed unit from the stream.
type Record struct {
	Kind RecordKind

	// Payload is the complete JSON line for Tweet, APIErrors and Other records.
	Payload json.RawMessage

	// Data is the raw "data" member of a Tweet.
	Data json.RawMessage

	// Errors is the raw "errors" member of an APIErrors record.
	Errors json.RawMessage

	// Raw is the offending line text of a Malformed record.
	Raw string

	// Err is set on Malformed records and matches ErrMalformedRecord.
	Err error
}

// Heartbeat returns the keep-alive record.
func Heartbeat() Record {
	return Record{Kind: KindHeartbeat}
}

// ClassifyLine turns one complete line (terminator excluded) into a Record.
func ClassifyLine(line []byte) Record {
	if len(line) == 0 {
		return Heartbeat()
	}

	if !json.Valid(line) {
		var v any
		err := json.Unmarshal(line, &v)
		return Record{
			Kind: KindMalformed,
			Raw:  string(line),
			Err:  &MalformedRecordError{Raw: string(line), Err: err},
		}
	}

	payload := make(json.RawMessage, len(line))
	copy(payload, line)

	var members map[string]json.RawMessage
	if err := json.Unmarshal(payload, &members); err != nil {
		// Valid JSON that is not an object.
		return Record{Kind: KindOther, Payload: payload}
	}
	if data, ok := members["data"]; ok && truthy(data) {
		return Record{Kind: KindTweet, Payload: payload, Data: data}
	}
	if errs, ok := members["errors"]; ok && truthy(errs) {
		return Record{Kind: KindAPIErrors, Payload: payload, Errors: errs}
	}
	return Record{Kind: KindOther, Payload: payload}
}

// truthy reports whether a member counts as present. null, false, a zero
// number and the empty string do not; objects and arrays always do, even
// when empty.
func truthy(v json.RawMessage) bool {
	switch t := string(bytes.TrimSpace(v)); t {
	case "null", "false", `""`:
		return false
	default:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f != 0
		}
		return true
	}
}
