// Package metrics exposes Prometheus counters for the rule engine.
// Purely observational: nothing here feeds back into a decision.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationsTotal counts workflow evaluations by kind and outcome
	// (true, false, error).
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickrule_evaluations_total",
			Help: "Total workflow evaluations by kind and outcome",
		},
		[]string{"workflow", "outcome"},
	)

	// CompileErrorsTotal counts expression compile failures by language.
	CompileErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickrule_compile_errors_total",
			Help: "Total expression compile failures by language",
		},
		[]string{"language"},
	)

	// EvalErrorsTotal counts runtime evaluation faults absorbed into
	// fail-closed defaults.
	EvalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickrule_eval_errors_total",
			Help: "Total evaluation faults absorbed into safe defaults",
		},
		[]string{"workflow"},
	)

	// CacheHitsTotal and CacheMissesTotal track the compiled-expression
	// cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickrule_compile_cache_hits_total",
			Help: "Compiled-expression cache hits",
		},
	)
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickrule_compile_cache_misses_total",
			Help: "Compiled-expression cache misses",
		},
	)
)
