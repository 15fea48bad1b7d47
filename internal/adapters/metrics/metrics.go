// Package metrics exports stream client activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/twitstream/pkg/twitstream"
)

const namespace = "twitstream"

// Collector is a twitstream.EventHandler that records client events.
type Collector struct {
	twitstream.BaseEventHandler

	records      *prometheus.CounterVec
	connects     prometheus.Counter
	reconnects   prometheus.Counter
	streamErrors prometheus.Counter
	connected    prometheus.Gauge
	backoff      prometheus.Histogram
}

// NewCollector creates the client metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Stream records received, by kind.",
			},
			[]string{"kind"},
		),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connects_total",
			Help:      "Stream requests accepted by the server.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Reconnects scheduled after a retryable failure.",
		}),
		streamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Lines that could not be parsed.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connected",
			Help:      "1 while a stream is open.",
		}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backoff_seconds",
			Help:      "Delay before reconnect attempts.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 320, 900},
		}),
	}

	for _, m := range []prometheus.Collector{
		c.records, c.connects, c.reconnects, c.streamErrors, c.connected, c.backoff,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (c *Collector) OnConnected(twitstream.ConnectedEvent) {
	c.connects.Inc()
	c.connected.Set(1)
}

func (c *Collector) OnClose(twitstream.CloseEvent) {
	c.connected.Set(0)
}

func (c *Collector) OnReconnecting(ev twitstream.ReconnectingEvent) {
	c.reconnects.Inc()
	c.backoff.Observe(ev.Delay.Seconds())
}

func (c *Collector) OnTweet(twitstream.Record) {
	c.records.WithLabelValues(twitstream.KindTweet.String()).Inc()
}

func (c *Collector) OnHeartbeat() {
	c.records.WithLabelValues(twitstream.KindHeartbeat.String()).Inc()
}

func (c *Collector) OnAPIErrors(twitstream.Record) {
	c.records.WithLabelValues(twitstream.KindAPIErrors.String()).Inc()
}

func (c *Collector) OnOther(twitstream.Record) {
	c.records.WithLabelValues(twitstream.KindOther.String()).Inc()
}

func (c *Collector) OnStreamError(error) {
	c.streamErrors.Inc()
}

var _ twitstream.EventHandler = (*Collector)(nil)
