package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingest
	activitiesIngested  prometheus.Counter
	activitiesDuplicate prometheus.Counter
	activitiesRejected  *prometheus.CounterVec
	activitiesStored    prometheus.Counter
	kafkaMessages       *prometheus.CounterVec

	// Recommendations
	recommendations       *prometheus.CounterVec
	recommendationLatency prometheus.Histogram
	windowActivities      prometheus.Histogram
	configReloads         *prometheus.CounterVec

	// Store
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram
	storeErrors       *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "paddock",
		subsystem:        "recovery",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.activitiesIngested = m.counter("activities_ingested_total", "Activities accepted into the ingest queue")
	m.activitiesDuplicate = m.counter("activities_duplicate_total", "Activity submissions dropped as already seen")
	m.activitiesRejected = m.counterVec("activities_rejected_total", "Activity submissions rejected, by reason", "reason")
	m.activitiesStored = m.counter("activities_stored_total", "Activities written to the activity store")
	m.kafkaMessages = m.counterVec("kafka_messages_total", "Kafka activity messages handled, by result", "result")

	m.recommendations = m.counterVec("recommendations_total", "Recommendations computed, by workload level and ride eligibility", "level", "can_ride")
	m.recommendationLatency = m.histogram("recommendation_latency_milliseconds", "End-to-end recommendation latency including the store query", m.histogramBuckets)
	m.windowActivities = m.histogram("window_activities", "Number of activities in the lookback window of a recommendation", []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55})
	m.configReloads = m.counterVec("config_reloads_total", "Recovery policy reloads, by result", "result")

	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds", "Activity store write latency", m.histogramBuckets)
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Activity store window query latency", m.histogramBuckets)
	m.storeErrors = m.counterVec("store_errors_total", "Activity store failures, by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Current number of activities waiting in the ingest queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingest queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Ingest queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Activities enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Activities dequeued by workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Failed enqueue attempts, by reason", "reason")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of running ingest workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends storing one activity", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Activities a worker failed to store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status code", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type", "endpoint", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

// RecordActivityIngested counts an activity accepted into the queue.
func RecordActivityIngested() { globalManager.activitiesIngested.Inc() }

// RecordActivityDuplicate counts a submission dropped as already seen.
func RecordActivityDuplicate() { globalManager.activitiesDuplicate.Inc() }

// RecordActivityRejected counts a rejected submission.
func RecordActivityRejected(reason string) {
	globalManager.activitiesRejected.WithLabelValues(reason).Inc()
}

// RecordActivityStored counts an activity persisted by a worker.
func RecordActivityStored() { globalManager.activitiesStored.Inc() }

// RecordKafkaMessage counts a consumed Kafka message by result.
func RecordKafkaMessage(result string) {
	globalManager.kafkaMessages.WithLabelValues(result).Inc()
}

// RecordRecommendation counts a computed recommendation.
func RecordRecommendation(level string, canRide bool) {
	ride := "false"
	if canRide {
		ride = "true"
	}
	globalManager.recommendations.WithLabelValues(level, ride).Inc()
}

// RecordRecommendationLatency records recommendation latency in milliseconds.
func RecordRecommendationLatency(latencyMs float64) {
	globalManager.recommendationLatency.Observe(latencyMs)
}

// RecordWindowActivities records how many activities fed a recommendation.
func RecordWindowActivities(count int) {
	globalManager.windowActivities.Observe(float64(count))
}

// RecordConfigReload counts a policy reload attempt by result ("applied", "rejected").
func RecordConfigReload(result string) {
	globalManager.configReloads.WithLabelValues(result).Inc()
}

// RecordStoreWriteLatency records activity store write latency.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records activity store query latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordStoreError counts a store failure for operation ("write", "query").
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a failed enqueue ("closed", "full", "context_cancelled").
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry the service metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
