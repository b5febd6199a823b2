package table

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vista_reads_total",
			Help: "Total number of page reads issued to the data source",
		},
		[]string{"view"},
	)

	readFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vista_read_failures_total",
			Help: "Total number of page reads that returned an error",
		},
		[]string{"view"},
	)

	// staleResponsesTotal: ответы, пришедшие после более нового запроса.
	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vista_stale_responses_total",
			Help: "Total number of read responses discarded because a newer read was issued",
		},
		[]string{"view"},
	)

	deletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vista_deletes_total",
			Help: "Total number of row deletes by outcome (deleted, noop, failed)",
		},
		[]string{"view", "outcome"},
	)

	readDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vista_read_duration_seconds",
			Help:    "Latency of data source reads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)
)
