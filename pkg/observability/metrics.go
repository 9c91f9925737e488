package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// It satisfies the query bus Metrics interface.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Bus metrics, keyed by metric name and query type
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector on its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Query bus events such as query_count and query_errors",
			},
			[]string{"metric", "label"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Query bus operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric", "label"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Operations,
		c.OperationDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// Increment adds one to the counter of metric and label
func (c *Collector) Increment(metric, label string) {
	c.Operations.WithLabelValues(metric, label).Inc()
}

// StartTimer returns a timer observing into the duration histogram when stopped
func (c *Collector) StartTimer(metric, label string) Timer {
	return &promTimer{
		observer: c.OperationDuration.WithLabelValues(metric, label),
		start:    time.Now(),
	}
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Timer is stopped once per measured operation
type Timer interface {
	Stop()
}

type promTimer struct {
	observer prometheus.Observer
	start    time.Time
}

func (t *promTimer) Stop() {
	t.observer.Observe(time.Since(t.start).Seconds())
}
