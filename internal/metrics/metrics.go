// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerPostings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_ledger_postings_total",
		Help: "Ledger records written, labeled by direction and purpose",
	}, []string{"type", "purpose"})

	LedgerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_ledger_rejections_total",
		Help: "Debits rejected before posting, labeled by error code",
	}, []string{"code"})

	IdempotentSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_idempotent_skips_total",
		Help: "Compensating actions skipped because they already happened",
	}, []string{"resource"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallet_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route", "status"})
)
