package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/founderstab/founders-tab/internal/application/port"
)

const namespace = "founders_tab"

// Collector owns the service's Prometheus registry and collectors
type Collector struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	refusals      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	nudges        *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Accepted workflow actions by trigger and status edge.",
		}, []string{"trigger", "from", "to"}),
		refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "refusals_total",
			Help:      "Refused workflow actions by trigger and reason.",
		}, []string{"trigger", "reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Owner notifications by kind and delivery status.",
		}, []string{"kind", "status"}),
		nudges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nudges",
			Name:      "sent_total",
			Help:      "Reminders sent to pending approvers.",
		}, []string{"type"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
	}

	c.registry.MustRegister(
		c.transitions,
		c.refusals,
		c.notifications,
		c.nudges,
		c.httpInFlight,
		c.httpRequests,
		c.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordTransition(trigger, from, to string) {
	c.transitions.WithLabelValues(trigger, from, to).Inc()
}

func (c *Collector) RecordRefusal(trigger, reason string) {
	c.refusals.WithLabelValues(trigger, reason).Inc()
}

func (c *Collector) RecordNotification(kind, status string) {
	c.notifications.WithLabelValues(kind, status).Inc()
}

func (c *Collector) RecordNudge(nudgeType string) {
	c.nudges.WithLabelValues(nudgeType).Inc()
}

// RequestStarted increments the in-flight gauge and returns a func that
// records the finished request.
func (c *Collector) RequestStarted() func(method, path, status string) {
	start := time.Now()
	c.httpInFlight.Inc()
	return func(method, path, status string) {
		c.httpInFlight.Dec()
		c.httpRequests.WithLabelValues(method, path, status).Inc()
		c.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

var _ port.Metrics = (*Collector)(nil)
