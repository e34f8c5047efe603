// Package metrics holds the prometheus collectors of the attempt engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_started_total",
			Help: "Attempts created through StartAttempt",
		},
	)

	AttemptsResumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_resumed_total",
			Help: "StartAttempt calls that returned an existing in-progress attempt",
		},
	)

	AttemptsSynthesized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_synthesized_total",
			Help: "Attempts created by a submit that found no in-progress attempt",
		},
	)

	AttemptsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempt_completed_total",
			Help: "Completed attempts by completion reason",
		},
		[]string{"reason"},
	)

	AttemptsRepaired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_repaired_total",
			Help: "Completed attempts regraded on read",
		},
	)

	SubmitsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_submit_deduplicated_total",
			Help: "Submits answered from a recently completed attempt",
		},
	)

	WriteConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_write_conflicts_total",
			Help: "Optimistic write conflicts that triggered a retry",
		},
	)

	RetriesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_retries_exhausted_total",
			Help: "Requests that failed after using the whole retry budget",
		},
	)

	ViolationsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "violation_recorded_total",
			Help: "Violations accepted, by delivery path",
		},
		[]string{"path"},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attempt_scoring_duration_seconds",
			Help:    "Time spent grading one attempt",
			Buckets: prometheus.DefBuckets,
		},
	)
)
