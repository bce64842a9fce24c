// Package metrics exposes the Prometheus counters and gauges the pipeline
// keeps, following the trading platform's convention of a package-level
// registry of client_golang collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SignalsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_signals_ingested_total",
		Help: "Standardized signals published by ingestion.",
	})

	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_orders_placed_total",
		Help: "Orders submitted to a broker, labeled by status.",
	}, []string{"status"})

	OrdersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_orders_rejected_total",
		Help: "Orders rejected, labeled by reason.",
	}, []string{"reason"})

	DecisionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_decisions_rejected_total",
		Help: "Cerebro decisions that ended in a reject, labeled by reason.",
	}, []string{"reason"})

	OpenPositionsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pipeline_open_positions",
		Help: "Current open positions per account.",
	}, []string{"account_id"})

	MarginPreviewLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_margin_preview_seconds",
		Help:    "Latency of broker margin-preview calls.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		SignalsIngested,
		OrdersPlaced,
		OrdersRejected,
		DecisionsRejected,
		OpenPositionsGauge,
		MarginPreviewLatency,
	)
}
