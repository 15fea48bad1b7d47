// Package framer reframes the raw byte stream of a streaming response into
// classified records.
//
// Lines are terminated by "\r\n". The upstream never emits that sequence
// inside a JSON payload, so no escaping or length prefix is involved.
package framer

import (
	"bytes"

	"github.com/bft-labs/twitstream/internal/domain"
)

// DefaultMaxBufferBytes bounds the pending partial line.
const DefaultMaxBufferBytes = 50 << 20 // 50MB

var terminator = []byte("\r\n")

// Options configures a Framer.
type Options struct {
	// MaxBufferBytes is the largest partial line kept while waiting for a
	// terminator. Zero selects DefaultMaxBufferBytes.
	MaxBufferBytes int

	// FlushPartialLine makes Flush classify a trailing line that never got
	// its terminator. By default it is discarded.
	FlushPartialLine bool
}

// Framer turns chunks into records. It is bound to one session and is not
// safe for concurrent use.
type Framer struct {
	opts    Options
	buf     []byte
	scanned int // bytes of buf already searched for a terminator
	failed  bool
}

// New creates a Framer with an empty buffer.
func New(opts Options) *Framer {
	if opts.MaxBufferBytes <= 0 {
		opts.MaxBufferBytes = DefaultMaxBufferBytes
	}
	return &Framer{opts: opts}
}

// Feed appends a chunk and returns the records of every line it completed,
// in order. Malformed lines come back as KindMalformed records and do not
// stop framing.
//
// When the remaining partial line exceeds the buffer bound Feed returns the
// records completed so far together with a *domain.BufferOverflowError. The
// framer is unusable afterwards.
func (f *Framer) Feed(chunk []byte) ([]domain.Record, error) {
	if f.failed {
		return nil, domain.ErrFramerClosed
	}
	f.buf = append(f.buf, chunk...)

	var records []domain.Record
	start := 0
	for {
		from := f.scanned
		if from < start {
			from = start
		}
		i := bytes.Index(f.buf[from:], terminator)
		if i < 0 {
			// A terminator may straddle this chunk and the next one.
			f.scanned = len(f.buf) - (len(terminator) - 1)
			break
		}
		end := from + i
		records = append(records, domain.ClassifyLine(f.buf[start:end]))
		start = end + len(terminator)
		f.scanned = start
	}

	f.compact(start)

	if len(f.buf) > f.opts.MaxBufferBytes {
		err := &domain.BufferOverflowError{Limit: f.opts.MaxBufferBytes, Buffered: len(f.buf)}
		f.fail()
		return records, err
	}
	return records, nil
}

// Flush ends the stream. The pending partial line is classified when
// FlushPartialLine is set and discarded otherwise. The buffer is released
// either way.
func (f *Framer) Flush() ([]domain.Record, error) {
	if f.failed {
		return nil, domain.ErrFramerClosed
	}
	defer f.reset()

	if !f.opts.FlushPartialLine || len(f.buf) == 0 {
		return nil, nil
	}
	return []domain.Record{domain.ClassifyLine(f.buf)}, nil
}

// Buffered returns the size of the pending partial line.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// compact drops consumed bytes from the front of the buffer.
func (f *Framer) compact(consumed int) {
	if consumed == 0 {
		if f.scanned < 0 {
			f.scanned = 0
		}
		return
	}
	n := copy(f.buf, f.buf[consumed:])
	f.buf = f.buf[:n]
	f.scanned -= consumed
	if f.scanned < 0 {
		f.scanned = 0
	}
	// Release a large backing array once it is mostly empty.
	if cap(f.buf) > 64<<10 && n < cap(f.buf)/4 {
		f.buf = append([]byte(nil), f.buf...)
	}
}

func (f *Framer) fail() {
	f.failed = true
	f.buf = nil
	f.scanned = 0
}

func (f *Framer) reset() {
	f.buf = nil
	f.scanned = 0
}
