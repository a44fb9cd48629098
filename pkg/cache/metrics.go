package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DedupRequests tracks deduplicating cache lookups by cache and result
	// ("hit", "miss", "evicted").
	DedupRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alma_dedup_cache_requests_total",
			Help: "Deduplicating cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	// ResponseCacheRequests tracks Redis response cache lookups by result
	// ("hit", "stale", "miss").
	ResponseCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alma_response_cache_requests_total",
			Help: "Redis response cache lookups by result",
		},
		[]string{"result"},
	)

	// ConditionalRequests tracks requests sent with If-None-Match or
	// If-Modified-Since.
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alma_conditional_requests_total",
			Help: "Conditional requests sent to Alma",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alma_304_responses_total",
			Help: "304 Not Modified responses from Alma",
		},
	)

	// ResponseCacheErrors tracks cache operation errors.
	ResponseCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alma_response_cache_errors_total",
			Help: "Redis response cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
