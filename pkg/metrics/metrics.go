// Package metrics provides Prometheus metrics for the Marigold service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookupsTotal tracks cache lookups by the tier that answered them
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by serving tier",
		},
		[]string{"served_from", "freshness"},
	)

	// CacheWritesTotal tracks cache writes by tier and status
	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Total number of cache writes by tier and status",
		},
		[]string{"tier", "status"},
	)

	// CacheEntriesEvicted tracks entries removed by cleanup sweeps
	CacheEntriesEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "cache",
			Name:      "entries_evicted_total",
			Help:      "Total number of cache entries evicted by cleanup sweeps",
		},
		[]string{"tier"},
	)

	// Tier1Entries tracks the current size of the in-process cache
	Tier1Entries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marigold",
			Subsystem: "cache",
			Name:      "tier1_entries",
			Help:      "Current number of entries in the in-process cache",
		},
	)

	// DedupResolutionsTotal tracks per-platform resolution outcomes
	DedupResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "dedup",
			Name:      "resolutions_total",
			Help:      "Total number of per-platform duplicate resolutions by outcome",
		},
		[]string{"platform", "outcome"},
	)

	// DedupResolutionDuration tracks per-platform resolution duration
	DedupResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marigold",
			Subsystem: "dedup",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of per-platform duplicate resolutions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"platform"},
	)

	// JudgeCallsTotal tracks judge invocations by status
	JudgeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "judges",
			Name:      "calls_total",
			Help:      "Total number of judge invocations by status",
		},
		[]string{"judge", "status"},
	)

	// JudgeCallDuration tracks judge invocation latency
	JudgeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marigold",
			Subsystem: "judges",
			Name:      "call_duration_seconds",
			Help:      "Duration of judge invocations in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"judge"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marigold",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// IngestMessagesTotal tracks listing ingest messages by status
	IngestMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Total number of listing ingest messages by status",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// RateLimitHits tracks judge quota limit hits
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "ratelimit",
			Name:      "hits_total",
			Help:      "Total number of rate limit hits",
		},
		[]string{"limit_name"},
	)
)

// RecordCacheLookup records a cache lookup outcome
func RecordCacheLookup(servedFrom, freshness string) {
	CacheLookupsTotal.WithLabelValues(servedFrom, freshness).Inc()
}

// RecordResolution records a per-platform resolution outcome
func RecordResolution(platform, outcome string, durationSeconds float64) {
	DedupResolutionsTotal.WithLabelValues(platform, outcome).Inc()
	DedupResolutionDuration.WithLabelValues(platform).Observe(durationSeconds)
}

// RecordJudgeCall records a judge invocation
func RecordJudgeCall(judge, status string, durationSeconds float64) {
	JudgeCallsTotal.WithLabelValues(judge, status).Inc()
	JudgeCallDuration.WithLabelValues(judge).Observe(durationSeconds)
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
