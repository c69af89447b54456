package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// generation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationDuration prometheus.Observer
	generationTotal    *prometheus.CounterVec
	placedTotal        prometheus.Counter
	unresolvedTotal    *prometheus.CounterVec
	exportTotal        *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Total timetable generation runs",
	}, []string{"outcome"})

	placedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_assignments_placed_total",
		Help: "Total class assignments committed across generation runs",
	})

	unresolvedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_requirements_unresolved_total",
		Help: "Total requirements reported unresolved, by reason",
	}, []string{"reason"})

	exportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_exports_total",
		Help: "Total export jobs, by format and outcome",
	}, []string{"format", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		generationDuration, generationTotal, placedTotal, unresolvedTotal, exportTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		generationDuration: generationDuration,
		generationTotal:    generationTotal,
		placedTotal:        placedTotal,
		unresolvedTotal:    unresolvedTotal,
		exportTotal:        exportTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveGeneration records one generation run's duration and outcome.
// Outcome is "complete" when every requirement was placed, otherwise
// "degraded".
func (m *MetricsService) ObserveGeneration(duration time.Duration, placed int, unresolvedByReason map[string]int) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(duration.Seconds())
	outcome := "complete"
	if len(unresolvedByReason) > 0 {
		outcome = "degraded"
	}
	m.generationTotal.WithLabelValues(outcome).Inc()
	m.placedTotal.Add(float64(placed))
	for reason, count := range unresolvedByReason {
		m.unresolvedTotal.WithLabelValues(reason).Add(float64(count))
	}
}

// RecordExport counts an export job completion.
func (m *MetricsService) RecordExport(format string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.exportTotal.WithLabelValues(format, outcome).Inc()
}
