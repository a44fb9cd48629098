// Package metrics exposes the Prometheus registry shared by the slip-report
// packages. Metrics are defined next to the code that records them (client,
// cache, ratelimit, enrich, pagination) and registered via promauto; this
// package only serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all slip-report metrics are added to.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Quota Metrics (pkg/ratelimit):
//   - alma_api_quota_remaining (Gauge): API calls left today per X-Exl-Api-Remaining
//   - alma_api_quota_blocks_total (Counter): Requests refused below the critical threshold
//
// Cache Metrics (pkg/cache):
//   - alma_dedup_cache_requests_total{cache, result} (Counter): Group lookups by outcome
//   - alma_response_cache_requests_total{result} (Counter): Configuration response cache lookups
//   - alma_conditional_requests_total (Counter): Revalidations sent with If-None-Match
//   - alma_304_responses_total (Counter): 304 Not Modified responses
//   - alma_response_cache_errors_total{operation} (Counter): Redis cache failures
//
// Request Metrics (pkg/client):
//   - alma_requests_total{endpoint, status} (Counter)
//   - alma_request_duration_seconds{endpoint} (Histogram)
//   - alma_errors_total{class} (Counter): client, unauthorized, server, network, decode
//
// Pipeline Metrics (pkg/enrich, pkg/pagination):
//   - alma_enrich_subtasks_total{task, result} (Counter)
//   - alma_page_fetches_total{result} (Counter)
//   - alma_page_fetch_duration_seconds (Histogram)
//   - alma_dropped_resources_total (Counter): Listing entries without requests
//   - alma_find_runs_total{result} (Counter)
//   - alma_find_duration_seconds (Histogram)
//   - alma_find_progress_percent (Gauge)
//
// Example Prometheus Queries:
//
//   # Quota running low
//   alma_api_quota_remaining < 5000
//
//   # Configuration cache hit rate
//   sum(rate(alma_response_cache_requests_total{result="hit"}[1h])) /
//   sum(rate(alma_response_cache_requests_total[1h]))
//
//   # P95 report duration
//   histogram_quantile(0.95, rate(alma_find_duration_seconds_bucket[1h]))
