// Package metrics provides the centralized Prometheus metrics registry
// for the client. All metrics are defined in their respective packages
// (client, retry, bulk, fetcher, cache, ratelimit, resolver) to
// maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - storyblok_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - storyblok_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - storyblok_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/retry):
//   - storyblok_retries_total (Counter): Retry attempts
//   - storyblok_retry_backoff_seconds (Histogram): Backoff duration between attempts
//   - storyblok_retry_exhausted_total (Counter): Operations that exhausted max attempts
//
// Bulk Scheduler Metrics (pkg/bulk):
//   - storyblok_bulk_ops_total{outcome} (Counter): Bulk operations by outcome (success, failed)
//   - storyblok_bulk_chunks_total (Counter): Chunks executed
//
// Fetch Metrics (pkg/fetcher):
//   - storyblok_market_fetches_total{outcome} (Counter): Market fetch attempts (success, error, exhausted)
//   - storyblok_market_fetch_duration_seconds (Histogram): Duration of complete market fetches
//
// Page Cache Metrics (pkg/cache):
//   - storyblok_cache_hits_total (Counter): Page cache hits
//   - storyblok_cache_misses_total (Counter): Page cache misses
//   - storyblok_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - storyblok_rate_limit_cooldowns_total (Counter): Cooldowns triggered by 429 responses
//   - storyblok_rate_limit_wait_seconds (Histogram): Time spent waiting out cooldowns
//
// Resolver Metrics (pkg/resolver):
//   - storyblok_resolver_substitutions_total{strategy} (Counter): Relation substitutions by strategy
//   - storyblok_resolver_iteration_cap_hits_total (Counter): Fixed-point loops stopped at the cap
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(storyblok_cache_hits_total[5m])) /
//   (sum(rate(storyblok_cache_hits_total[5m])) + sum(rate(storyblok_cache_misses_total[5m])))
//
//   # Dropped Page Rate
//   rate(storyblok_bulk_ops_total{outcome="failed"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(storyblok_request_duration_seconds_bucket[5m]))
//
//   # Markets Exhausting Their Retry Budget
//   rate(storyblok_market_fetches_total{outcome="exhausted"}[5m])
