// Package metrics holds the Prometheus collectors for the live scoring
// core, exposed on /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "golbang_live_active_connections",
		Help: "Currently connected score viewers",
	})

	ScoresSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "golbang_live_scores_submitted_total",
		Help: "Hole score submissions accepted by the cache",
	})

	ScoreSubmitErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "golbang_live_score_submit_errors_total",
		Help: "Hole score submissions rejected or failed",
	})

	BroadcastsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "golbang_live_broadcasts_total",
		Help: "Messages fanned out to viewer connections",
	}, []string{"scope"})

	FlushesSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "golbang_live_flushes_succeeded_total",
		Help: "Successful persistence passes",
	})

	FlushesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "golbang_live_flushes_failed_total",
		Help: "Failed persistence passes (retried next interval)",
	})

	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "golbang_live_flush_duration_seconds",
		Help:    "Time spent persisting one event's cache state",
		Buckets: prometheus.DefBuckets,
	})

	ActivePersistLoops = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "golbang_live_active_persist_loops",
		Help: "Events with a running persistence loop",
	})
)
