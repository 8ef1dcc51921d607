// Package metrics exposes Prometheus instrumentation for the inventory
// pipeline and an optional HTTP endpoint serving it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skucrawler",
		Name:      "stage_duration_seconds",
		Help:      "Wall-clock duration of one inventory stage",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"vendor", "stage"})

	StageRowsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skucrawler",
		Name:      "stage_rows_upserted_total",
		Help:      "Rows inserted or updated per inventory stage",
	}, []string{"vendor", "stage"})

	StageRowsInvalidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skucrawler",
		Name:      "stage_rows_invalidated_total",
		Help:      "Rows tombstoned at the start of an inventory stage",
	}, []string{"vendor", "stage"})

	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skucrawler",
		Name:      "stage_failures_total",
		Help:      "Inventory stages aborted by an error",
	}, []string{"vendor", "stage"})

	VendorPulls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skucrawler",
		Name:      "vendor_pulls_total",
		Help:      "Completed vendor pulls by outcome",
	}, []string{"vendor", "outcome"})

	InspectorMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skucrawler",
		Name:      "inspector_misses_total",
		Help:      "Servers with no usable inspector output per framework",
	}, []string{"vendor", "framework"})
)
