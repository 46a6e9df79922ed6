// Package metrics exposes Prometheus counters, gauges, and a histogram for
// the server's concurrency core. Metrics are a pure observer: constructing
// and updating them never influences control flow or the ordering
// guarantees in §5 of the design.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every gauge/counter/histogram the server updates.
type Metrics struct {
	registry *prometheus.Registry

	QueueDepth          prometheus.Gauge
	WorkersBusy         prometheus.Gauge
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
}

// New constructs a Metrics instance registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	return &Metrics{
		registry: reg,

		QueueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "httpfs_queue_depth",
			Help: "Current occupancy of the bounded connection queue.",
		}),
		WorkersBusy: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "httpfs_workers_busy",
			Help: "Number of workers currently inside a request handler.",
		}),
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "httpfs_requests_total",
			Help: "Total completed requests by method and status.",
		}, []string{"method", "status"}),
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "httpfs_request_duration_milliseconds",
			Help:    "Time from dequeue to response written, in milliseconds.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"method"}),
		ConnectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "httpfs_connections_accepted_total",
			Help: "Connections accepted and admitted to the queue.",
		}),
		ConnectionsRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "httpfs_connections_rejected_total",
			Help: "Connections shed by the accept-rate limiter before reaching the queue.",
		}),
	}
}

// ObserveRequest records one completed request's outcome and duration.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, statusLabel(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(float64(duration.Milliseconds()))
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	switch status {
	case 200, 201, 400, 403, 404, 500, 501, 505:
		return strconv.Itoa(status)
	default:
		return "other"
	}
}
