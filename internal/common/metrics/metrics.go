// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_queries_resolved_total",
			Help: "Total number of queries resolved to a structured query",
		},
		[]string{"path"}, // "direct" or "clarified"
	)

	ClarificationsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_clarifications_issued_total",
			Help: "Total number of clarification prompts issued",
		},
		[]string{"slot_kind", "reason"},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_sessions_expired_total",
			Help: "Total number of pending-query sessions discarded by expiry",
		},
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "resolver_resolution_duration_seconds",
			Help: "Duration of a single extract/resolve pass in seconds",
		},
		[]string{"outcome"},
	)

	CatalogReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_catalog_reloads_total",
			Help: "Total number of catalog reload attempts",
		},
		[]string{"status"},
	)
)
