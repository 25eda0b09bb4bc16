package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the assessment service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Submission metrics
	submissions          prometheus.Counter
	submissionsDuplicate prometheus.Counter
	submissionsRejected  prometheus.Counter
	scoringLatency       prometheus.Histogram

	// Persistence metrics
	persistenceLatency *prometheus.HistogramVec
	storedAssessments  prometheus.Gauge

	// Delivery metrics
	deliveryAttempts  *prometheus.CounterVec
	legOutcomes       *prometheus.CounterVec
	chainLatency      prometheus.Histogram
	resendOutcomes    *prometheus.CounterVec
	dispatchCacheSize prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
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
		namespace:        "dons",
		subsystem:        "assessment",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounter(m.counterOpts(
		"submissions_total", "Total number of accepted assessment submissions"))
	m.submissionsDuplicate = auto.NewCounter(m.counterOpts(
		"submissions_duplicate_total", "Submissions resolved to an already stored assessment"))
	m.submissionsRejected = auto.NewCounter(m.counterOpts(
		"submissions_rejected_total", "Submissions rejected by answer validation"))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts(
		"scoring_latency_milliseconds", "Scoring latency in milliseconds", m.histogramBuckets))

	m.persistenceLatency = auto.NewHistogramVec(m.histogramOpts(
		"persistence_latency_milliseconds", "Persistence gateway latency in milliseconds", m.histogramBuckets),
		[]string{"operation"})
	m.storedAssessments = auto.NewGauge(m.gaugeOpts(
		"stored_assessments", "Number of assessments written by this process"))

	m.deliveryAttempts = auto.NewCounterVec(m.counterOpts(
		"delivery_attempts_total", "Channel send attempts by channel and outcome"),
		[]string{"channel", "outcome"})
	m.legOutcomes = auto.NewCounterVec(m.counterOpts(
		"leg_outcomes_total", "Recipient leg outcomes by role and outcome"),
		[]string{"role", "outcome"})
	m.chainLatency = auto.NewHistogram(m.histogramOpts(
		"chain_latency_milliseconds", "Time spent in one pass of the channel chain",
		[]float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 20000}))
	m.resendOutcomes = auto.NewCounterVec(m.counterOpts(
		"resend_outcomes_total", "Resend requests by outcome"),
		[]string{"outcome"})
	m.dispatchCacheSize = auto.NewGauge(m.gaugeOpts(
		"dispatch_cache_size", "Assessments remembered by the dispatch latch"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts(
		"errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Milliseconds converts an elapsed duration into the float used by latency
// histograms.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// RecordSubmission increments the accepted submissions counter.
func RecordSubmission() {
	globalManager.submissions.Inc()
}

// RecordSubmissionDuplicate increments the duplicate submissions counter.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordSubmissionRejected increments the rejected submissions counter.
func RecordSubmissionRejected() {
	globalManager.submissionsRejected.Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordPersistenceLatency records a persistence operation latency.
func RecordPersistenceLatency(operation string, latencyMs float64) {
	globalManager.persistenceLatency.WithLabelValues(operation).Observe(latencyMs)
}

// IncStoredAssessments increments the stored assessments gauge.
func IncStoredAssessments() {
	globalManager.storedAssessments.Inc()
}

// RecordDeliveryAttempt counts one channel send.
func RecordDeliveryAttempt(channel, outcome string) {
	globalManager.deliveryAttempts.WithLabelValues(channel, outcome).Inc()
}

// RecordLegOutcome counts one recipient leg result.
func RecordLegOutcome(role, outcome string) {
	globalManager.legOutcomes.WithLabelValues(role, outcome).Inc()
}

// RecordChainLatency records one pass through the channel chain.
func RecordChainLatency(latencyMs float64) {
	globalManager.chainLatency.Observe(latencyMs)
}

// RecordResendOutcome counts one resend request.
func RecordResendOutcome(outcome string) {
	globalManager.resendOutcomes.WithLabelValues(outcome).Inc()
}

// UpdateDispatchCacheSize sets the number of latched assessments.
func UpdateDispatchCacheSize(size int64) {
	globalManager.dispatchCacheSize.Set(float64(size))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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

// CollectSystem samples runtime statistics once.
func CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		last := ms.PauseNs[(ms.NumGC+255)%256]
		RecordSystemGCPauseTime(float64(last) / float64(time.Millisecond))
	}
}

// StartSystemCollector samples runtime statistics until ctx is done.
func StartSystemCollector(ctx context.Context) {
	ticker := time.NewTicker(globalManager.refreshInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CollectSystem()
			}
		}
	}()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
