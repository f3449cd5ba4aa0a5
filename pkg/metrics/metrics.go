// Package metrics provides the centralized Prometheus metrics registry for
// the HubSpot deals client. All metrics are defined in their respective
// packages (client, cache, ratelimit, diagnostics) to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the deals client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hubspot_rate_limit_daily_remaining (Gauge): Remaining requests in the daily quota
//   - hubspot_rate_limit_interval_remaining (Gauge): Remaining requests in the rolling interval
//
// Retry Metrics (pkg/client):
//   - hubspot_rate_limit_retries_total (Counter): Requests retried after a 429 response
//   - hubspot_rate_limit_wait_seconds (Histogram): Wait imposed before the single 429 retry
//
// Request Metrics (pkg/client):
//   - hubspot_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - hubspot_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - hubspot_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Schema Cache Metrics (pkg/cache):
//   - hubspot_schema_cache_hits_total (Counter): Cache hits for the deal properties schema
//   - hubspot_schema_cache_misses_total (Counter): Cache misses
//   - hubspot_schema_cache_errors_total{operation} (Counter): Cache operation errors
//
// Diagnostics Metrics (pkg/diagnostics):
//   - hubspot_connection_tests_total{outcome} (Counter): Connection tests by outcome
//     (ok, degraded, invalid_token, aborted)
//
// Example Prometheus Queries:
//
//   # Daily Quota Headroom
//   hubspot_rate_limit_daily_remaining < 1000
//
//   # Request Error Rate
//   rate(hubspot_errors_total[5m])
//
//   # 429 Pressure
//   rate(hubspot_rate_limit_retries_total[5m]) / rate(hubspot_requests_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(hubspot_request_duration_seconds_bucket[5m]))
//
//   # Schema Cache Hit Rate
//   sum(rate(hubspot_schema_cache_hits_total[5m])) /
//   (sum(rate(hubspot_schema_cache_hits_total[5m])) + sum(rate(hubspot_schema_cache_misses_total[5m])))
