// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "advisor"

var (
	// Recommendations counts single-semester recommendations by terminal status.
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "recommendations_total",
		Help:      "Recommendations produced, by status",
	}, []string{"status"})

	// SolveDuration measures optimizer wall time.
	SolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "optimizer",
		Name:      "solve_duration_seconds",
		Help:      "Time spent building and solving one course program",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// PlannedSemesters counts simulated semesters, labeled by whether anything was eligible.
	PlannedSemesters = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "semesters_total",
		Help:      "Semesters simulated by the forward planner",
	}, []string{"outcome"})

	// RiskRequests counts calls to the remote risk model.
	// Labels: outcome (success, error)
	RiskRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "requests_total",
		Help:      "Remote risk model requests by outcome",
	}, []string{"outcome"})

	// RiskFallbacks counts batches scored by the heuristic after the model failed.
	RiskFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "fallbacks_total",
		Help:      "Risk batches scored by the heuristic fallback",
	})

	// CycleErrors counts prerequisite cycles surfaced to callers.
	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "cycle_errors_total",
		Help:      "Prerequisite cycles detected while ordering courses",
	})

	// HTTPRequests counts API requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})

	// EvaluatedStudents counts students processed by batch evaluation.
	// Labels: outcome (ok, error)
	EvaluatedStudents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "evaluation",
		Name:      "students_total",
		Help:      "Students processed by batch evaluation",
	}, []string{"outcome"})
)
