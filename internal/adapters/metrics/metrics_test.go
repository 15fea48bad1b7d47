package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/twitstream/pkg/twitstream"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.OnConnected(twitstream.ConnectedEvent{Attempt: 1})
	assert.Contains(t, scrape(t, reg), "twitstream_session_connected 1\n")

	c.OnTweet(twitstream.Record{Kind: twitstream.KindTweet})
	c.OnTweet(twitstream.Record{Kind: twitstream.KindTweet})
	c.OnHeartbeat()
	c.OnAPIErrors(twitstream.Record{Kind: twitstream.KindAPIErrors})
	c.OnOther(twitstream.Record{Kind: twitstream.KindOther})
	c.OnStreamError(errors.New("bad line"))
	c.OnClose(twitstream.CloseEvent{})
	c.OnReconnecting(twitstream.ReconnectingEvent{Delay: 2 * time.Second})

	out := scrape(t, reg)
	for _, line := range []string{
		`twitstream_records_total{kind="tweet"} 2`,
		`twitstream_records_total{kind="heartbeat"} 1`,
		`twitstream_records_total{kind="api-errors"} 1`,
		`twitstream_records_total{kind="other"} 1`,
		"twitstream_stream_errors_total 1",
		"twitstream_session_connects_total 1",
		"twitstream_session_reconnects_total 1",
		"twitstream_session_connected 0",
		"twitstream_backoff_seconds_sum 2",
		"twitstream_backoff_seconds_count 1",
	} {
		assert.Contains(t, out, line+"\n")
	}
}

func TestCollector_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}
