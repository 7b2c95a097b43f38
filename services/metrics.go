package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rankingPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_ranking_passes_total",
			Help: "Ranking passes by metric and outcome",
		},
		[]string{"metric", "outcome"},
	)
	rankingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ladder_ranking_duration_seconds",
			Help:    "Time spent reconciling, filtering, sorting and paginating",
			Buckets: prometheus.DefBuckets,
		},
	)
	fetchRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_fetch_retries_total",
			Help: "Retries of remote store calls",
		},
		[]string{"op"},
	)
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_submissions_total",
			Help: "Ladder submissions by outcome",
		},
		[]string{"outcome"},
	)
	syncWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_sync_writes_total",
			Help: "Debounced profile writes by outcome",
		},
		[]string{"outcome"},
	)
)

// InitMetrics registers the engine metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(rankingPasses)
	prometheus.MustRegister(rankingDuration)
	prometheus.MustRegister(fetchRetries)
	prometheus.MustRegister(submissionsTotal)
	prometheus.MustRegister(syncWrites)
}

// ObserveRetry matches store.RepositoryConfig.OnRetry.
func ObserveRetry(op string, _ error, _ time.Duration) {
	fetchRetries.WithLabelValues(op).Inc()
}
