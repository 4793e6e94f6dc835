// Package metrics provides Prometheus metrics for the forecast hub.
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

// Manager manages all Prometheus metrics for the forecast hub.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Forecast store
	modificationsApplied  *prometheus.CounterVec
	modificationsRejected *prometheus.CounterVec
	recordsChanged        prometheus.Counter
	resets                prometheus.Counter
	forecastVersion       prometheus.Gauge
	modificationLogLength prometheus.Gauge

	// Broadcast fan-out
	broadcasts        *prometheus.CounterVec
	broadcastLatency  prometheus.Histogram
	deliveryFailures  *prometheus.CounterVec
	activeConnections prometheus.Gauge
	connectionsTotal  *prometheus.CounterVec

	// Hub command mailbox
	commandQueueSize     prometheus.Gauge
	commandQueueCapacity prometheus.Gauge
	commandLatency       *prometheus.HistogramVec
	commandsDropped      prometheus.Counter

	// Inbound traffic and collaborators
	inboundMessages *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	duplicates      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "forecasthub",
		subsystem:        "hub",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.modificationsApplied = m.counterVec("modifications_applied_total",
		"Modifications accepted into the forecast", "metric", "edit_type")
	m.modificationsRejected = m.counterVec("modifications_rejected_total",
		"Modifications rejected at validation", "reason")
	m.recordsChanged = m.counter("records_changed_total",
		"Hourly records whose value changed due to a modification")
	m.resets = m.counter("resets_total", "Forecast resets to a fresh baseline")
	m.forecastVersion = m.gauge("forecast_version", "Current forecast version")
	m.modificationLogLength = m.gauge("modification_log_length", "Entries in the modification log")

	m.broadcasts = m.counterVec("broadcasts_total", "Broadcasts issued", "type")
	m.broadcastLatency = m.histogram("broadcast_latency_milliseconds", "Time to fan a payload out to all connections")
	m.deliveryFailures = m.counterVec("delivery_failures_total", "Per-connection delivery failures", "cause")
	m.activeConnections = m.gauge("active_connections", "Registered observer connections")
	m.connectionsTotal = m.counterVec("connections_total", "Connection lifecycle events", "event")

	m.commandQueueSize = m.gauge("command_queue_size", "Commands waiting in the hub mailbox")
	m.commandQueueCapacity = m.gauge("command_queue_capacity", "Hub mailbox capacity")
	m.commandLatency = m.histogramVec("command_latency_milliseconds", "Hub command processing time", "command")
	m.commandsDropped = m.counter("commands_dropped_total", "Commands refused because the mailbox was full or closed")

	m.inboundMessages = m.counterVec("inbound_messages_total", "Messages received from observers", "type")
	m.upstreamErrors = m.counterVec("upstream_errors_total", "Failures from external collaborators", "collaborator")
	m.duplicates = m.counter("duplicate_requests_total", "Modification batches ignored as duplicates")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Forecast store.

// RecordModificationApplied counts an accepted modification and the records it changed.
func RecordModificationApplied(metric, editType string, changed int) {
	globalManager.modificationsApplied.WithLabelValues(metric, editType).Inc()
	globalManager.recordsChanged.Add(float64(changed))
}

// RecordModificationRejected counts a rejected modification by reason.
func RecordModificationRejected(reason string) {
	globalManager.modificationsRejected.WithLabelValues(reason).Inc()
}

// RecordReset counts a reset.
func RecordReset() {
	globalManager.resets.Inc()
}

// UpdateForecastState publishes the current version and log length.
func UpdateForecastState(version uint64, logLength int) {
	globalManager.forecastVersion.Set(float64(version))
	globalManager.modificationLogLength.Set(float64(logLength))
}

// Broadcast fan-out.

// RecordBroadcast records one broadcast of the given message type.
func RecordBroadcast(messageType string, latencyMs float64) {
	globalManager.broadcasts.WithLabelValues(messageType).Inc()
	globalManager.broadcastLatency.Observe(latencyMs)
}

// RecordDeliveryFailure counts a failed send to one connection.
func RecordDeliveryFailure(cause string) {
	globalManager.deliveryFailures.WithLabelValues(cause).Inc()
}

// UpdateActiveConnections sets the registry size.
func UpdateActiveConnections(n int) {
	globalManager.activeConnections.Set(float64(n))
}

// RecordConnectionEvent counts joins and leaves.
func RecordConnectionEvent(event string) {
	globalManager.connectionsTotal.WithLabelValues(event).Inc()
}

// Hub command mailbox.

// UpdateCommandQueue sets mailbox size and capacity.
func UpdateCommandQueue(size, capacity int) {
	globalManager.commandQueueSize.Set(float64(size))
	globalManager.commandQueueCapacity.Set(float64(capacity))
}

// RecordCommandLatency observes how long a hub command took.
func RecordCommandLatency(command string, latencyMs float64) {
	globalManager.commandLatency.WithLabelValues(command).Observe(latencyMs)
}

// RecordCommandDropped counts a refused command.
func RecordCommandDropped() {
	globalManager.commandsDropped.Inc()
}

// Inbound traffic and collaborators.

// RecordInboundMessage counts an observer message by type.
func RecordInboundMessage(messageType string) {
	globalManager.inboundMessages.WithLabelValues(messageType).Inc()
}

// RecordUpstreamError counts a collaborator failure.
func RecordUpstreamError(collaborator string) {
	globalManager.upstreamErrors.WithLabelValues(collaborator).Inc()
}

// RecordDuplicateRequest counts a deduplicated batch.
func RecordDuplicateRequest() {
	globalManager.duplicates.Inc()
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval reports how often the global manager's periodic gauges
// should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
