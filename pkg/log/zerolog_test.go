package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Info("session opened",
		Session("abc"),
		Attempt(2),
		Endpoint("search"),
		Duration("delay", 1500*time.Millisecond),
		Bool("reconnect", true),
		Err(errors.New("boom")),
		Any("params", map[string]string{"expansions": "author_id"}),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "info", got["level"])
	assert.Equal(t, "session opened", got["message"])
	assert.Equal(t, "abc", got["session"])
	assert.EqualValues(t, 2, got["attempt"])
	assert.Equal(t, "search", got["endpoint"])
	assert.EqualValues(t, 1500, got["delay"])
	assert.Equal(t, true, got["reconnect"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, map[string]any{"expansions": "author_id"}, got["params"])
}

func TestZerologAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Debug("dropped")
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
