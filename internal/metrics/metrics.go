// Package metrics exposes Prometheus counters for the API and the realtime hub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	eventsPublished *prometheus.CounterVec
	framesDropped   prometheus.Counter
	wsClients       prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_events_published_total",
			Help: "Realtime events published, by kind.",
		}, []string{"kind"}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_ws_frames_dropped_total",
			Help: "Frames dropped because a client's send queue was full.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskhub_ws_clients",
			Help: "Currently connected realtime clients.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "HTTP responses, by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskhub_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.eventsPublished,
		c.framesDropped,
		c.wsClients,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) EventPublished(kind string) {
	c.eventsPublished.WithLabelValues(kind).Inc()
}

func (c *Collector) FrameDropped() {
	c.framesDropped.Inc()
}

func (c *Collector) ClientConnected() {
	c.wsClients.Inc()
}

func (c *Collector) ClientDisconnected() {
	c.wsClients.Dec()
}

func (c *Collector) RecordRequest(status int, took time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
