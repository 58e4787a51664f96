// Package metrics documents the Prometheus metrics of the exporter and writes
// them out at the end of a run.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, export) and registered via promauto.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer reads back the default registry every package registers with.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path in the text exposition
// format, for node_exporter's textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - discord_requests_total{endpoint, status} (Counter): Requests by route and HTTP status
//   - discord_request_duration_seconds{endpoint} (Histogram): Request duration by route
//   - discord_errors_total{class} (Counter): Errors by class (client, rate_limit, server, network)
//   - discord_name_fallbacks_total{kind} (Counter): Names replaced by their id
//
// Retry Metrics (pkg/client):
//   - discord_retries_total{error_class} (Counter): Retry attempts by error class
//   - discord_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - discord_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Rate Limit Metrics (pkg/ratelimit):
//   - discord_ratelimit_remaining{bucket} (Gauge): Requests left in the bucket
//   - discord_ratelimit_exhausted_total (Counter): Responses that left a bucket empty
//   - discord_ratelimited_responses_total{scope} (Counter): 429 responses by scope
//
// Cache Metrics (pkg/cache):
//   - discord_name_cache_hits_total (Counter): Name cache hits
//   - discord_name_cache_misses_total (Counter): Name cache misses
//   - discord_name_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/pagination):
//   - discord_thread_pages_fetched_total (Counter): Search pages fetched
//   - discord_thread_duplicates_total (Counter): Duplicate threads skipped
//
// Export Metrics (pkg/export):
//   - discord_thread_exports_total{result} (Counter): Threads by result (success, failed, skipped)
//   - discord_thread_export_duration_seconds (Histogram): Exporter run time per thread
//   - discord_exported_messages_total (Counter): Messages found in exported files
//
// Example Prometheus Queries:
//
//   # Failed exports in the last run
//   discord_thread_exports_total{result="failed"}
//
//   # Rate limit headroom
//   min(discord_ratelimit_remaining) < 5
//
//   # P95 exporter run time
//   histogram_quantile(0.95, rate(discord_thread_export_duration_seconds_bucket[1h]))
