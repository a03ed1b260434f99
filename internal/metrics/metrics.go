package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// RequestLatency tracks HTTP request latency by endpoint and method
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// ErrorCounter counts errors by type and endpoint
	ErrorCounter *prometheus.CounterVec
	// JobsSubmitted counts accepted login submissions
	JobsSubmitted prometheus.Counter
	// JobTransitions counts job state transitions by target status
	JobTransitions *prometheus.CounterVec
	// ValidationOutcomes counts validity-check results
	ValidationOutcomes *prometheus.CounterVec
	// InteractiveSessions tracks currently open login windows
	InteractiveSessions prometheus.Gauge
	// JobDuration tracks submit-to-terminal duration. Human-paced, so
	// the buckets go out to hours.
	JobDuration prometheus.Histogram
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		ErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors by type and endpoint",
			},
			[]string{"error_type", "endpoint", "method"},
		),
		JobsSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_submitted_total",
				Help:      "Total accepted login-job submissions",
			},
		),
		JobTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_transitions_total",
				Help:      "Total job state transitions by target status",
			},
			[]string{"status"},
		),
		ValidationOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_outcomes_total",
				Help:      "Total validity-check results",
			},
			[]string{"outcome"},
		),
		InteractiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "interactive_sessions_open",
				Help:      "Currently open interactive login windows",
			},
		),
		JobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration from submission to terminal status",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600, 14400, 86400},
			},
		),
	}

	registry.MustRegister(
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.ErrorCounter,
		m.JobsSubmitted,
		m.JobTransitions,
		m.ValidationOutcomes,
		m.InteractiveSessions,
		m.JobDuration,
	)

	return m
}

// Handler returns a Prometheus handler for these metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequestLatency records the latency of an HTTP request
func (m *Metrics) RecordRequestLatency(endpoint, method, status string, durationSeconds float64) {
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncHTTPRequestsInFlight increments the in-flight requests counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight requests counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, endpoint, method string) {
	m.ErrorCounter.WithLabelValues(errorType, endpoint, method).Inc()
}

// RecordSubmission records an accepted login submission
func (m *Metrics) RecordSubmission() {
	m.JobsSubmitted.Inc()
}

// RecordTransition records a job state transition
func (m *Metrics) RecordTransition(status string) {
	m.JobTransitions.WithLabelValues(status).Inc()
}

// RecordValidation records a validity-check outcome
func (m *Metrics) RecordValidation(valid bool) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.ValidationOutcomes.WithLabelValues(outcome).Inc()
}

// IncInteractiveSessions increments the open-window gauge
func (m *Metrics) IncInteractiveSessions() {
	m.InteractiveSessions.Inc()
}

// DecInteractiveSessions decrements the open-window gauge
func (m *Metrics) DecInteractiveSessions() {
	m.InteractiveSessions.Dec()
}

// RecordJobDuration records the submit-to-terminal duration
func (m *Metrics) RecordJobDuration(seconds float64) {
	m.JobDuration.Observe(seconds)
}
