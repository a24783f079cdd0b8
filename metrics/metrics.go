// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PriceFeedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grooby",
		Name:      "price_feed_requests_total",
		Help:      "Upstream price feed requests by outcome.",
	}, []string{"outcome"})

	PriceCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grooby",
		Name:      "price_cache_lookups_total",
		Help:      "Per-symbol price cache lookups by result (hit, miss).",
	}, []string{"result"})

	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grooby",
		Name:      "transaction_submissions_total",
		Help:      "Transaction entry submissions by type and outcome.",
	}, []string{"type", "outcome"})

	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grooby",
		Name:      "auth_attempts_total",
		Help:      "Register and login attempts by operation and outcome.",
	}, []string{"operation", "outcome"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grooby",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
)

// MustRegister registers every collector on r.
func MustRegister(r prometheus.Registerer) {
	r.MustRegister(PriceFeedRequests, PriceCacheLookups, Submissions, AuthAttempts, RequestDuration)
}
