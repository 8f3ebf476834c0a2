package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laundry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "laundry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	OrderEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laundry",
			Subsystem: "order",
			Name:      "events_total",
			Help:      "Order change events emitted, by type.",
		},
		[]string{"type"},
	)

	LookupFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laundry",
			Subsystem: "order",
			Name:      "lookup_fallback_total",
			Help:      "Order lookups that only matched through a fallback tier.",
		},
		[]string{"tier"},
	)

	RealtimePeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "laundry",
			Subsystem: "realtime",
			Name:      "peers",
			Help:      "Currently connected realtime peers.",
		},
	)

	RealtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "laundry",
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Realtime messages dropped because a peer queue was full.",
		},
	)
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		OrderEvents,
		LookupFallbacks,
		RealtimePeers,
		RealtimeDropped,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
