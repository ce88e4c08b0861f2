// Package metrics exposes prometheus instrumentation for the quote API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuoteRequests counts quote computations by outcome.
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loancalc_quote_requests_total",
			Help: "Total number of quote computations",
		},
		[]string{"status"},
	)

	// CalculationErrors counts computation failures by type.
	CalculationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loancalc_calculation_errors_total",
			Help: "Number of calculation errors",
		},
		[]string{"error_type"},
	)

	// CatalogLookups counts vehicle catalog lookups by outcome.
	CatalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loancalc_catalog_lookups_total",
			Help: "Vehicle catalog lookups",
		},
		[]string{"status"},
	)

	// QuoteDuration observes end-to-end quote handling time.
	QuoteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loancalc_quote_duration_seconds",
			Help:    "Time spent computing and persisting quotes",
			Buckets: prometheus.DefBuckets,
		},
	)
)
