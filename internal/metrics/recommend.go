package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeEmptyQuery   = "empty_query"
	OutcomeNoKeywords   = "no_keywords"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

// Recommendation pipeline metrics.
var (
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	RecommendCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_candidates",
			Help:      "Candidate count after filtering",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"strategy"},
	)

	RecommendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "End-to-end recommendation pipeline duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
)
