// Package metrics provides Prometheus instrumentation for the entitlement
// backend.
//
// The service registers its metrics via promauto then mounts metrics.Handler()
// at GET /metrics (Prometheus scrape endpoint).
//
// Standard metrics exposed automatically by prometheus/client_golang:
//   - go_goroutines, go_gc_duration_seconds, etc. (Go runtime)
//   - process_cpu_seconds_total, process_open_fds, etc. (process)
//
// Service-specific metrics registered here:
//   suistream_access_checks_total       — counter: access verdicts by reason
//   suistream_ledger_degradations_total — counter: failed ledger reads by op
//   suistream_ledger_writes_total       — counter: signed writes by outcome
//   suistream_onboard_inconsistent_total— counter: partial onboarding failures
//   suistream_admin_events_total        — counter: admin actions by type/result
//   suistream_http_requests_total       — counter: HTTP requests by method/path/status
//   suistream_http_request_duration_seconds — histogram: HTTP latency
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Counters ──────────────────────────────────────────────────────────────────

// AccessChecks counts access verdicts by reason code.
var AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "suistream_access_checks_total",
	Help: "Access check verdicts by reason.",
}, []string{"reason"})

// LedgerDegradations counts ledger reads that failed after retries, by
// operation. A nonzero rate means access checks are failing closed.
var LedgerDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "suistream_ledger_degradations_total",
	Help: "Ledger reads that exhausted retries, by operation.",
}, []string{"op"})

// LedgerWrites counts signed write transactions by outcome.
var LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "suistream_ledger_writes_total",
	Help: "Signed ledger writes by outcome (success, rejected, unavailable).",
}, []string{"op", "outcome"})

// OnboardInconsistent counts onboarding runs that left orphaned on-chain
// objects (first create succeeded, a later step failed). Each increment is a
// manual-reconciliation work item.
var OnboardInconsistent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "suistream_onboard_inconsistent_total",
	Help: "Onboarding runs that failed after creating on-chain objects.",
})

// AdminEvents counts admin actions (login, add_user, remove_user, ...).
var AdminEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "suistream_admin_events_total",
	Help: "Admin events by type and result.",
}, []string{"event", "result"})

// HTTPRequests counts HTTP requests by method, path, and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "suistream_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// ── Histograms ────────────────────────────────────────────────────────────────

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "suistream_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// LedgerCallDuration tracks round-trip latency of ledger RPCs.
var LedgerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "suistream_ledger_call_duration_seconds",
	Help:    "Ledger RPC latency in seconds, by method.",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
}, []string{"method"})

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ── Middleware ────────────────────────────────────────────────────────────────

// Middleware wraps an HTTP handler to record request counts and latency.
// path should be a templated route pattern, not the raw URL.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		dur := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rw.status)
		HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// sanitizePath keeps label cardinality bounded.
func sanitizePath(path string) string {
	if len(path) > 64 {
		return path[:64] + "..."
	}
	return path
}
