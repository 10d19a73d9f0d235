package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	requests             *prometheus.CounterVec
	duration             *prometheus.HistogramVec
	inFlight             prometheus.Gauge
	errors               *prometheus.CounterVec
	transitions          *prometheus.CounterVec
	claims               *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	autoClosed           prometheus.Counter
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Failed HTTP requests by error code",
		}, []string{"method", "route", "code"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_status_transitions_total",
			Help: "Committed ticket status transitions",
		}, []string{"from", "to"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_claims_total",
			Help: "Claim attempts by outcome",
		}, []string{"outcome"}),
		notificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Swallowed notification side-effect failures by channel",
		}, []string{"channel"}),
		autoClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tickets_auto_closed_total",
			Help: "Tickets closed by the auto-close job",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.requests.With(labels).Inc()
	m.duration.With(labels).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

// RecordTransition counts a committed status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordClaim counts a claim attempt by outcome ("claimed" or an error code).
func (m *Metrics) RecordClaim(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// RecordNotificationFailure counts a swallowed notification failure.
func (m *Metrics) RecordNotificationFailure(channel string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(channel).Inc()
}

// RecordAutoClosed adds n to the auto-closed counter.
func (m *Metrics) RecordAutoClosed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autoClosed.Add(float64(n))
}
