package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Document metrics
	TraversalEntries *prometheus.HistogramVec
	OpenHandles      prometheus.Gauge
	BytesTransferred *prometheus.CounterVec

	// Event stream metrics
	EventSubscribers prometheus.Gauge
	EventsPublished  *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	OpenHandles   int64   `json:"open_handles"`
	TotalDuration float64 `json:"total_duration_seconds"`
	RequestCount  int64   `json:"request_count"`
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several collectors can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsandbox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsandbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsandbox_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsandbox_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsandbox_service_calls_total",
				Help: "Total number of namespace operations",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsandbox_service_duration_seconds",
				Help:    "Namespace operation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsandbox_service_errors_total",
				Help: "Total number of failed namespace operations",
			},
			[]string{"service", "method", "error_type"},
		),

		// Document metrics
		TraversalEntries: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsandbox_traversal_entries",
				Help:    "Entries visited per search or recent traversal",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"operation"},
		),
		OpenHandles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsandbox_open_handles",
				Help: "Number of document handles currently open",
			},
		),
		BytesTransferred: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsandbox_content_bytes_total",
				Help: "Document bytes read or written through the API",
			},
			[]string{"direction"},
		),

		// Event stream metrics
		EventSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsandbox_event_subscribers",
				Help: "Number of connected event stream subscribers",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsandbox_events_total",
				Help: "Write-close events by delivery outcome",
			},
			[]string{"outcome"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "docsandbox_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the collector's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a namespace operation
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a failed namespace operation
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// ObserveTraversal records how many entries a traversal visited
func (m *Metrics) ObserveTraversal(operation string, entries int) {
	m.TraversalEntries.WithLabelValues(operation).Observe(float64(entries))
}

// IncOpenHandles increments the open handle gauge
func (m *Metrics) IncOpenHandles() {
	m.OpenHandles.Inc()
	m.mu.Lock()
	m.snapshot.OpenHandles++
	m.mu.Unlock()
}

// DecOpenHandles decrements the open handle gauge
func (m *Metrics) DecOpenHandles() {
	m.OpenHandles.Dec()
	m.mu.Lock()
	m.snapshot.OpenHandles--
	m.mu.Unlock()
}

// AddBytes counts content bytes moved in the given direction ("read" or "write")
func (m *Metrics) AddBytes(direction string, n int64) {
	if n > 0 {
		m.BytesTransferred.WithLabelValues(direction).Add(float64(n))
	}
}

// IncEventSubscribers increments connected event subscribers
func (m *Metrics) IncEventSubscribers() {
	m.EventSubscribers.Inc()
}

// DecEventSubscribers decrements connected event subscribers
func (m *Metrics) DecEventSubscribers() {
	m.EventSubscribers.Dec()
}

// RecordEvent records the delivery outcome of one event ("delivered" or "dropped")
func (m *Metrics) RecordEvent(outcome string) {
	m.EventsPublished.WithLabelValues(outcome).Inc()
}

// Snapshot returns a copy of the JSON-friendly counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
