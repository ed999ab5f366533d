// Package metrics holds the Prometheus collectors for the controller daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "greenhouse"

var (
	ReadingsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "readings_ingested_total",
		Namespace: Namespace,
		Help:      "The total number of readings parsed and stored.",
	})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "parse_failures_total",
		Namespace: Namespace,
		Help:      "The total number of controller lines discarded by the parser.",
	})

	IngestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "ingest_errors_total",
			Namespace: Namespace,
			Help:      "The total number of ingestion ticks that failed, by stage.",
		},
		[]string{"stage"},
	)

	TriggerEvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "trigger_evaluations_total",
		Namespace: Namespace,
		Help:      "The total number of trigger evaluations that had a reading to evaluate.",
	})

	TriggerEdgesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "trigger_edges_total",
			Namespace: Namespace,
			Help:      "The total number of trigger transitions, by trigger and kind.",
		},
		[]string{"trigger", "kind"},
	)

	EdgesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "edges_dropped_total",
		Namespace: Namespace,
		Help:      "The total number of trigger edges dropped because the publish queue was full.",
	})

	PersistenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "persistence_failures_total",
			Namespace: Namespace,
			Help:      "The total number of failed writes, by store.",
		},
		[]string{"store"},
	)

	CommandsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "commands_sent_total",
			Namespace: Namespace,
			Help:      "The total number of commands written to the controller, by kind.",
		},
		[]string{"kind"},
	)

	CommandsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "commands_rejected_total",
		Namespace: Namespace,
		Help:      "The total number of commands rejected before transmission.",
	})

	DbLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "db_latency_seconds",
			Namespace: Namespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of store operations in seconds.",
		},
		[]string{"query"},
	)

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "cache_hits_total",
		Namespace: Namespace,
		Help:      "The total number of latest-reading cache hits.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "cache_misses_total",
		Namespace: Namespace,
		Help:      "The total number of latest-reading cache misses.",
	})

	HttpRequestLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "http_request_latency_seconds",
			Namespace: Namespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of API requests in seconds.",
		},
		[]string{"route"},
	)

	TransportConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "transport_connected",
		Namespace: Namespace,
		Help:      "1 while the serial connection to the controller is open.",
	})
)
