package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resultsTotal counts recorded results by outcome class.
	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datescout_results_total",
		Help: "Total number of URLs processed and recorded, labeled by outcome.",
	}, []string{"outcome"})

	// queriesTotal counts query submissions, including failed ones.
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datescout_queries_total",
		Help: "The total number of search queries submitted.",
	})

	// queryDurationSeconds observes submit-to-stable-results latency.
	queryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "datescout_query_duration_seconds",
		Help:    "Histogram of query submission latencies.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// blockCooldownsTotal counts session-wide detection cooldowns.
	blockCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datescout_block_cooldowns_total",
		Help: "The total number of times the session cooled down after detection.",
	})
)
