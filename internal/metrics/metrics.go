// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package metrics registers the Prometheus collectors for Placemarks.
//
// Collectors are package-level promauto variables; callers use the Record*
// helpers so label sets stay consistent.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Place store
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placemarks_store_query_duration_seconds",
			Help:    "Duration of place store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_store_query_errors_total",
			Help: "Total number of failed place store queries",
		},
		[]string{"operation", "error_type"}, // error_type: timeout, canceled, other
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placemarks_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placemarks_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Caches
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_cache_hits_total",
			Help: "Cache hits by cache namespace, tier and matching strategy",
		},
		[]string{"cache", "tier", "strategy"}, // tier: memory, persistent; strategy: exact, proximity, prefix
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_cache_misses_total",
			Help: "Cache misses by cache namespace",
		},
		[]string{"cache"},
	)

	CacheStaleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_cache_stale_hits_total",
			Help: "Entries served past their validity window but inside soft expiry",
		},
		[]string{"cache"},
	)

	CacheStorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_cache_storage_errors_total",
			Help: "Persistent cache operations that failed and were treated as misses",
		},
		[]string{"cache", "operation", "reason"}, // reason: timeout, error, malformed
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_cache_evictions_total",
			Help: "Entries removed from persistent caches",
		},
		[]string{"cache", "reason"}, // reason: owner_mismatch, capacity, expired, invalidated
	)

	// Recommendations
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_recommendation_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // ok, insufficient, degraded, invalid
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placemarks_recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_recommendation_fallbacks_total",
			Help: "Degraded paths taken while building recommendations",
		},
		[]string{"stage"}, // visited, candidates
	)

	// Availability
	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_availability_checks_total",
			Help: "Availability checks by result",
		},
		[]string{"result"}, // enough, insufficient, invalid, error
	)

	AvailabilityDiscrepancies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placemarks_availability_count_discrepancies_total",
			Help: "Checks where the exact count disagreed with the has-minimum answer",
		},
	)

	// Places directory
	DirectoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_directory_requests_total",
			Help: "Upstream places directory calls by operation and result",
		},
		[]string{"operation", "result"}, // result: success, failure, rate_limited, rejected
	)

	DirectoryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placemarks_directory_request_duration_seconds",
			Help:    "Upstream places directory latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Background tasks
	TaskQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placemarks_task_queue_depth",
			Help: "Tasks waiting in the background queue",
		},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placemarks_tasks_total",
			Help: "Background tasks by name and result",
		},
		[]string{"name", "result"}, // result: ok, dropped, panic
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placemarks_task_duration_seconds",
			Help:    "Background task run time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)
)

// RecordDBQuery records a place store query.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, errorType(err)).Inc()
	}
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheHit records a hit on the given tier using the given strategy.
func RecordCacheHit(cache, tier, strategy string) {
	CacheHits.WithLabelValues(cache, tier, strategy).Inc()
}

// RecordCacheMiss records a miss after every strategy was tried.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheStorageError records a persistent operation treated as a miss.
func RecordCacheStorageError(cache, operation string, err error) {
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	CacheStorageErrors.WithLabelValues(cache, operation, reason).Inc()
}

// RecordRecommendation records a finished recommendation request.
func RecordRecommendation(outcome string, duration time.Duration) {
	RecommendationRequests.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordDirectoryRequest records an upstream places directory call.
func RecordDirectoryRequest(operation, result string, duration time.Duration) {
	DirectoryRequests.WithLabelValues(operation, result).Inc()
	if duration > 0 {
		DirectoryRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordTask records a background task outcome.
func RecordTask(name, result string, duration time.Duration) {
	TasksTotal.WithLabelValues(name, result).Inc()
	if duration > 0 {
		TaskDuration.WithLabelValues(name).Observe(duration.Seconds())
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
