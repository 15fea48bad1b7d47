package sink

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/pkg/log"
)

func tweet(line string) domain.Record {
	return domain.ClassifyLine([]byte(line))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":        FormatJSON,
		"json":    FormatJSON,
		"ndjson":  FormatJSON,
		"msgpack": FormatMsgpack,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON, log.NewNoopLogger())

	w.OnTweet(tweet(`{"data":{"id":"1"}}`))
	w.OnTweet(tweet(`{"data":{"id":"2"},"matching_rules":[{"tag":"cats"}]}`))
	w.OnHeartbeat()

	require.NoError(t, w.Err())
	assert.Equal(t, "{\"data\":{\"id\":\"1\"}}\n{\"data\":{\"id\":\"2\"},\"matching_rules\":[{\"tag\":\"cats\"}]}\n", buf.String())
}

func TestWriter_Msgpack(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatMsgpack, log.NewNoopLogger())

	w.OnTweet(tweet(`{"data":{"id":"1","text":"hi"}}`))
	w.OnTweet(tweet(`{"data":{"id":"2"}}`))
	require.NoError(t, w.Err())

	dec := msgpack.NewDecoder(&buf)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	data, ok := first["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", data["text"])
	assert.Equal(t, "2", second["data"].(map[string]any)["id"])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_KeepsWriteError(t *testing.T) {
	w := NewWriter(failingWriter{}, FormatJSON, log.NewNoopLogger())
	w.OnTweet(tweet(`{"data":{}}`))
	assert.EqualError(t, w.Err(), "disk full")
}

func TestWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON, log.NewNoopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.OnTweet(tweet(`{"data":{"id":"x"}}`))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, bytes.Count(buf.Bytes(), []byte("\n")))
}
