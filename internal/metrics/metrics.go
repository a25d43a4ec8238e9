// Package metrics exposes Prometheus collectors for the ingestion pipeline.
//
// Collectors are registered on the default registry at package
// initialisation; the CLI serves them on /metrics when --metrics-addr is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rdfstream"

var (
	// ElementsDelivered counts elements handed to a consumer, by shape.
	ElementsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "elements_delivered_total",
		Help:      "Elements delivered to consumers",
	}, []string{"shape"})

	// ElementsInconvertible counts elements whose fallbacks were exhausted.
	ElementsInconvertible = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "elements_inconvertible_total",
		Help:      "Elements that could not be converted to any declared type",
	}, []string{"shape"})

	// ResolverLookups counts conversion path lookups by cache outcome
	// (hit, miss, negative).
	ResolverLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "lookups_total",
		Help:      "Conversion path lookups by cache outcome",
	}, []string{"outcome"})

	// ResolverSearches counts breadth-first searches over the converter graph.
	ResolverSearches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "searches_total",
		Help:      "Converter graph searches",
	})

	// BridgesActive is the number of running push-to-pull bridges.
	BridgesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "active",
		Help:      "Running push-to-pull bridges",
	})

	// BridgeQueueDepth observes the queue length seen by consumers.
	BridgeQueueDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "queue_depth",
		Help:      "Queued elements observed on each consumer read",
		Buckets:   []float64{0, 1, 8, 64, 256, 512, 1024},
	})

	// SourcesProcessed counts sources by outcome (ok, error, no_parser, interrupted).
	SourcesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sources_processed_total",
		Help:      "Sources processed by outcome",
	}, []string{"outcome"})
)
