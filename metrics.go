package jangkau

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle,
// cache, de-duplication, polling and loading layers. It is safe for
// concurrent use; a nil collector is a no-op.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	dedupeHits *prometheus.CounterVec

	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	abortsTotal  *prometheus.CounterVec

	pollsActive   *prometheus.GaugeVec
	loadingActive prometheus.Gauge

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer. Tests pass their own prometheus.NewRegistry().
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_requests_total",
				Help: "Total number of endpoint calls resolved",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jangkau_request_duration_seconds",
				Help:    "Duration of endpoint calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jangkau_requests_in_flight",
				Help: "Number of endpoint calls currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"method", "endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"method", "endpoint"},
		),
		cacheSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jangkau_cache_size",
				Help: "Current number of entries in cache",
			},
			[]string{"name"},
		),
		dedupeHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_dedupe_hits_total",
				Help: "Total number of calls joined onto an in-flight request",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"endpoint", "attempt"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "method", "endpoint"},
		),
		abortsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jangkau_aborts_total",
				Help: "Total number of calls canceled through Abort",
			},
			[]string{"endpoint"},
		),
		pollsActive: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jangkau_polls_active",
				Help: "Number of pollers currently running",
			},
			[]string{"endpoint"},
		),
		loadingActive: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "jangkau_loading_active",
				Help: "Whether the aggregated loading state is visible (0 or 1)",
			},
		),
		registerer: registry,
	}
}

// RecordRequest records call count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordCacheHit increments the cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheSize sets the cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(name string, size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.WithLabelValues(name).Set(float64(size))
}

// RecordDedupeHit increments the de-duplication hit counter.
func (mc *MetricsCollector) RecordDedupeHit(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.dedupeHits.WithLabelValues(method, endpoint).Inc()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(endpoint string, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// RecordAbort adds the number of calls canceled under an endpoint.
func (mc *MetricsCollector) RecordAbort(endpoint string, count int) {
	if mc == nil || count <= 0 {
		return
	}

	mc.abortsTotal.WithLabelValues(endpoint).Add(float64(count))
}

// RecordPollStart increments the active poller gauge.
func (mc *MetricsCollector) RecordPollStart(endpoint string) {
	if mc == nil {
		return
	}

	mc.pollsActive.WithLabelValues(endpoint).Inc()
}

// RecordPollEnd decrements the active poller gauge.
func (mc *MetricsCollector) RecordPollEnd(endpoint string) {
	if mc == nil {
		return
	}

	mc.pollsActive.WithLabelValues(endpoint).Dec()
}

// RecordLoadingState sets the loading gauge to the aggregator's visible
// state.
func (mc *MetricsCollector) RecordLoadingState(showing bool) {
	if mc == nil {
		return
	}

	if showing {
		mc.loadingActive.Set(1)
	} else {
		mc.loadingActive.Set(0)
	}
}

// GetRegistry exposes the underlying prometheus registry when the collector
// was built on one, nil otherwise.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	if r, ok := mc.registerer.(*prometheus.Registry); ok {
		return r
	}
	return nil
}
