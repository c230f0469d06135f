// Package metrics registers the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_http_requests_total",
			Help: "HTTP requests by method, route template and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CollectionsTotal counts installment collections by who collected (admin, agent)
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_collections_total",
			Help: "Installment collections recorded",
		},
		[]string{"source"},
	)

	CollectedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_collected_amount_inr_total",
			Help: "Ledger amount recorded by collections, in INR",
		},
	)

	ReversalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_collection_reversals_total",
			Help: "Collections reverted by deleting their ledger row",
		},
	)

	OverdueMarkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_installments_marked_overdue_total",
			Help: "Installments moved from PENDING to OVERDUE by the sweep",
		},
	)

	ContinuationRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loan_continuation_installments_total",
			Help: "Interest-only monthly rows generated",
		},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loan_live_clients",
			Help: "Connected live-feed websocket clients",
		},
	)
)
