// Package sink writes stream records to an io.Writer.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bft-labs/twitstream/internal/ports"
	"github.com/bft-labs/twitstream/pkg/twitstream"
)

// Format selects the output encoding.
type Format string

const (
	// FormatJSON writes each record as one line of JSON.
	FormatJSON Format = "json"

	// FormatMsgpack writes each record as a msgpack map.
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON, "ndjson":
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or msgpack)", s)
}

// Writer is a twitstream.EventHandler that writes every tweet to w.
// It is safe for concurrent use.
type Writer struct {
	twitstream.BaseEventHandler

	mu     sync.Mutex
	w      io.Writer
	format Format
	enc    *msgpack.Encoder
	logger ports.Logger
	err    error
}

// NewWriter creates a Writer for the given format.
func NewWriter(w io.Writer, format Format, logger ports.Logger) *Writer {
	sw := &Writer{w: w, format: format, logger: logger}
	if format == FormatMsgpack {
		sw.enc = msgpack.NewEncoder(w)
		sw.enc.SetSortMapKeys(true)
	}
	return sw
}

// OnTweet writes the record.
func (s *Writer) OnTweet(rec twitstream.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(rec); err != nil {
		if s.err == nil {
			s.logger.Error("write record", ports.Err(err))
		}
		s.err = err
	}
}

// Err returns the last write error, if any.
func (s *Writer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Writer) write(rec twitstream.Record) error {
	switch s.format {
	case FormatMsgpack:
		var v map[string]any
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		return s.enc.Encode(v)
	default:
		line := make([]byte, 0, len(rec.Payload)+1)
		line = append(line, rec.Payload...)
		line = append(line, '\n')
		_, err := s.w.Write(line)
		return err
	}
}

var _ twitstream.EventHandler = (*Writer)(nil)
