package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions by terminal outcome (ok, unauthorized, needs_auth, not_found, upstream, bad_input)
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcode_resolutions_total",
			Help: "Total number of alias resolutions by outcome",
		},
		[]string{"outcome"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcode_cache_lookups_total",
			Help: "Result cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailcode_provider_call_duration_seconds",
			Help:    "Mail provider call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"operation", "status"},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcode_token_refreshes_total",
			Help: "Access token refresh attempts by status",
		},
		[]string{"status"},
	)
)

// RecordResolution counts a finished resolution
func RecordResolution(outcome string) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordProviderCall observes one provider call
func RecordProviderCall(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderCallDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordTokenRefresh counts a refresh attempt
func RecordTokenRefresh(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	TokenRefreshesTotal.WithLabelValues(status).Inc()
}
