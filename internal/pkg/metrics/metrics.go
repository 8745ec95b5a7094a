// Package metrics exposes Prometheus metrics for the timesheet service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// crmRequestsTotal counts requests sent to the data platform.
	// Labels:
	//   - entity: entity set name (e.g., "cr_timekeepings")
	//   - method: HTTP method
	//   - status: "success" or the HTTP status class ("4xx", "5xx", "transport")
	crmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_crm_requests_total",
			Help: "Total number of requests sent to the CRM data platform",
		},
		[]string{"entity", "method", "status"},
	)

	crmRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timesheet_crm_request_duration_seconds",
			Help:    "Duration of CRM data platform requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"entity", "method"},
	)

	// upstreamFailuresTotal counts month computations aborted by a failed fetch.
	// Labels:
	//   - source: "attendance" or "registration"
	upstreamFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_upstream_failures_total",
			Help: "Total number of month computations aborted because an upstream fetch failed",
		},
		[]string{"source"},
	)

	staleResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timesheet_stale_responses_total",
			Help: "Total number of responses served from the last successful snapshot",
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_reference_cache_lookups_total",
			Help: "Reference data cache lookups by result",
		},
		[]string{"key", "result"},
	)
)

func init() {
	prometheus.MustRegister(crmRequestsTotal)
	prometheus.MustRegister(crmRequestDuration)
	prometheus.MustRegister(upstreamFailuresTotal)
	prometheus.MustRegister(staleResponsesTotal)
	prometheus.MustRegister(cacheLookupsTotal)
}

// RecordCRMRequest records one data platform request and its duration.
func RecordCRMRequest(entity, method, status string, durationSeconds float64) {
	crmRequestsTotal.WithLabelValues(entity, method, status).Inc()
	crmRequestDuration.WithLabelValues(entity, method).Observe(durationSeconds)
}

// RecordUpstreamFailure records an aborted month computation.
func RecordUpstreamFailure(source string) {
	upstreamFailuresTotal.WithLabelValues(source).Inc()
}

// RecordStaleResponse records a response served from a snapshot.
func RecordStaleResponse() {
	staleResponsesTotal.Inc()
}

// RecordCacheLookup records a reference cache hit or miss.
func RecordCacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(key, result).Inc()
}
