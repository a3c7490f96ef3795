// Package metrics exposes Prometheus counters for the progress engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submissions counts persisted submissions by variant and outcome (passed, failed).
var Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiz_progress",
	Name:      "submissions_total",
	Help:      "Total persisted quiz and exam submissions.",
}, []string{"variant", "outcome"})

// Rejections counts submissions rejected before any mutation.
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiz_progress",
	Name:      "rejections_total",
	Help:      "Submissions rejected by a gate.",
}, []string{"variant", "reason"})

// XPAwarded sums experience points granted.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiz_progress",
	Name:      "xp_awarded_total",
	Help:      "Total experience points awarded.",
}, []string{"variant"})

// GemsAwarded sums gems granted.
var GemsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiz_progress",
	Name:      "gems_awarded_total",
	Help:      "Total gems awarded.",
}, []string{"variant"})

// BadgesAwarded counts newly inserted badges by badge type.
var BadgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiz_progress",
	Name:      "badges_awarded_total",
	Help:      "Total badges awarded.",
}, []string{"type"})

// VersionConflicts counts optimistic save conflicts that triggered a retry.
var VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quiz_progress",
	Name:      "version_conflicts_total",
	Help:      "Progress saves retried after a concurrent modification.",
})

// SubmissionLatency tracks end-to-end submission handling time.
var SubmissionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "quiz_progress",
	Name:      "submission_latency_seconds",
	Help:      "Submission handling duration in seconds.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"variant"})

// FeedSubscribers tracks open progress feed sockets.
var FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "quiz_progress",
	Name:      "feed_subscribers",
	Help:      "Open live progress feed subscriptions.",
})
