// Package metrics provides Prometheus metrics for the BIZ dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the dashboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Backend API client
	apiRequests        *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	apiErrors          *prometheus.CounterVec
	apiInFlight        prometheus.Gauge

	// Live device stream
	streamMessages    *prometheus.CounterVec
	streamConnections prometheus.Gauge

	// Dashboard HTTP server
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Route table and views
	routeLookups     *prometheus.CounterVec
	viewLoads        *prometheus.CounterVec
	viewRenderErrors *prometheus.CounterVec
	routesDeclared   prometheus.Gauge
	viewsLoaded      prometheus.Gauge
	uptimeSeconds    prometheus.Gauge

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bizdash",
		subsystem:        "",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("api_requests_total"),
		Help:        "Backend API requests by endpoint template, method and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.apiRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("api_request_duration_milliseconds"),
		Help:        "Backend API request latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method"})

	m.apiErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("api_errors_total"),
		Help:        "Backend API calls that ended in a transport error or non-2xx status",
		ConstLabels: labels,
	}, []string{"endpoint", "method"})

	m.apiInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("api_requests_in_flight"),
		Help:        "Backend API requests currently waiting for a response",
		ConstLabels: labels,
	})

	m.streamMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stream_messages_total"),
		Help:        "Messages received on live device streams by message type",
		ConstLabels: labels,
	}, []string{"type"})

	m.streamConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stream_connections"),
		Help:        "Open live device stream connections",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Dashboard HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "Dashboard HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.routeLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("route_lookups_total"),
		Help:        "Route table lookups by resolved route name (none when unmatched)",
		ConstLabels: labels,
	}, []string{"route"})

	m.viewLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("view_loads_total"),
		Help:        "Lazy view loads by view and outcome",
		ConstLabels: labels,
	}, []string{"view", "outcome"})

	m.viewRenderErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("view_render_errors_total"),
		Help:        "View renders that failed, by view",
		ConstLabels: labels,
	}, []string{"view"})

	m.routesDeclared = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("routes_declared"),
		Help:        "Routes declared in the route table",
		ConstLabels: labels,
	})

	m.viewsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("views_loaded"),
		Help:        "Views whose code has been loaded",
		ConstLabels: labels,
	})

	m.uptimeSeconds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("uptime_seconds"),
		Help:        "Seconds since the dashboard service started",
		ConstLabels: labels,
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often the service and system gauges are refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Gatherer returns the registry the manager's metrics live on, for scraping.
// Registerers that cannot be gathered fall back to the default gatherer.
func (m *Manager) Gatherer() prometheus.Gatherer {
	if g, ok := m.registry.(prometheus.Gatherer); ok {
		return g
	}
	return prometheus.DefaultGatherer
}

// RecordAPIRequest records one finished backend API call.
func (m *Manager) RecordAPIRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.apiRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// RecordAPIError increments the failed backend call counter.
func (m *Manager) RecordAPIError(endpoint, method string) {
	if !m.enabled {
		return
	}
	m.apiErrors.WithLabelValues(endpoint, method).Inc()
}

// AddAPIInFlight moves the in-flight gauge by delta.
func (m *Manager) AddAPIInFlight(delta int) {
	if !m.enabled {
		return
	}
	m.apiInFlight.Add(float64(delta))
}

// RecordStreamMessage counts a live stream message by type.
func (m *Manager) RecordStreamMessage(msgType string) {
	if !m.enabled {
		return
	}
	m.streamMessages.WithLabelValues(msgType).Inc()
}

// AddStreamConnections moves the open stream gauge by delta.
func (m *Manager) AddStreamConnections(delta int) {
	if !m.enabled {
		return
	}
	m.streamConnections.Add(float64(delta))
}

// RecordHTTPRequest records a dashboard HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRouteLookup counts a route table resolution.
func (m *Manager) RecordRouteLookup(route string) {
	if !m.enabled {
		return
	}
	m.routeLookups.WithLabelValues(route).Inc()
}

// RecordViewLoad counts a lazy view load attempt; outcome is "ok" or "error".
func (m *Manager) RecordViewLoad(view, outcome string) {
	if !m.enabled {
		return
	}
	m.viewLoads.WithLabelValues(view, outcome).Inc()
}

// RecordViewRenderError counts a failed view render.
func (m *Manager) RecordViewRenderError(view string) {
	if !m.enabled {
		return
	}
	m.viewRenderErrors.WithLabelValues(view).Inc()
}

// UpdateServiceGauges sets the route table and uptime gauges.
func (m *Manager) UpdateServiceGauges(routes, loaded int, uptime time.Duration) {
	if !m.enabled {
		return
	}
	m.routesDeclared.Set(float64(routes))
	m.viewsLoaded.Set(float64(loaded))
	m.uptimeSeconds.Set(uptime.Seconds())
}

// RecordGCPause records an average GC pause in milliseconds.
func (m *Manager) RecordGCPause(pauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemGCPauseTime.Observe(pauseMs)
}

// UpdateSystemMemoryUsage sets the allocated heap in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if !m.enabled {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

// Default returns the process-wide manager backed by the custom registry.
func Default() *Manager {
	return globalManager
}

// RecordAPIRequest records one finished backend API call.
func RecordAPIRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordAPIRequest(endpoint, method, statusCode, durationMs)
}

// RecordAPIError increments the failed backend call counter.
func RecordAPIError(endpoint, method string) {
	globalManager.RecordAPIError(endpoint, method)
}

// RecordHTTPRequest records a dashboard HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordRouteLookup counts a route table resolution.
func RecordRouteLookup(route string) {
	globalManager.RecordRouteLookup(route)
}

// RecordViewLoad counts a lazy view load attempt.
func RecordViewLoad(view, outcome string) {
	globalManager.RecordViewLoad(view, outcome)
}

// RecordViewRenderError counts a failed view render.
func RecordViewRenderError(view string) {
	globalManager.RecordViewRenderError(view)
}

// UpdateServiceGauges sets the route table and uptime gauges.
func UpdateServiceGauges(routes, loaded int, uptime time.Duration) {
	globalManager.UpdateServiceGauges(routes, loaded, uptime)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.UpdateSystemMemoryUsage(bytes)
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.UpdateSystemGoroutineCount(count)
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.RecordGCPause(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
