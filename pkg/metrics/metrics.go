// Package metrics exposes the Prometheus metrics of the SendGrid client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, warmup) to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package metric is created in.
// All metrics are automatically registered via promauto.
var Registry = prometheus.DefaultRegisterer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - sendgrid_requests_total{endpoint, status} (Counter): Calls by endpoint and HTTP status
//   - sendgrid_request_duration_seconds{endpoint} (Histogram): Call duration, retries included
//   - sendgrid_errors_total{class} (Counter): Transport errors by class (network, server, parse)
//   - sendgrid_application_errors_total{endpoint} (Counter): Responses carrying an application error
//   - sendgrid_recipients_polls_total (Counter): Waits for a new list to become visible
//
// Retry Metrics (pkg/client):
//   - sendgrid_retries_total{endpoint} (Counter): Retry attempts
//   - sendgrid_retry_exhausted_total{endpoint} (Counter): Calls that used up all attempts
//
// Cache Metrics (pkg/cache):
//   - sendgrid_cache_hits_total (Counter): Cache hits
//   - sendgrid_cache_misses_total (Counter): Cache misses
//   - sendgrid_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - sendgrid_rate_limit_waits_total (Counter): Calls delayed by the client-side limiter
//   - sendgrid_rate_limit_wait_seconds (Histogram): Time spent waiting for a token
//
// Warm-Up Metrics (pkg/warmup):
//   - warmup_cohorts_planned_total (Counter): Cohorts planned
//   - warmup_steps_total{step, outcome} (Counter): Workflow steps by outcome (done, skipped, failed)
//   - warmup_recipients_uploaded_total (Counter): Recipients uploaded to warm-up lists
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(sendgrid_cache_hits_total[5m])) /
//   (sum(rate(sendgrid_cache_hits_total[5m])) + sum(rate(sendgrid_cache_misses_total[5m])))
//
//   # Transport Error Rate
//   rate(sendgrid_errors_total[5m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(sendgrid_request_duration_seconds_bucket[5m]))
//
//   # Failed Warm-Up Steps
//   sum by (step) (warmup_steps_total{outcome="failed"})
