package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "analyst"

// Stage outcomes reported by RecordStage.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

var (
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_runs_total",
		Help:      "Workflow stage executions by outcome.",
	}, []string{"stage", "outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time spent in each workflow stage.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	routeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Routing policy decisions.",
	}, []string{"route"})

	extractionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_fallbacks_total",
		Help:      "Turns where extraction kept the previous requirements record.",
	})

	turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Completed engine invocations by path.",
	}, []string{"path"})
)

// RecordStage records one stage execution.
func RecordStage(stage, outcome string, elapsed time.Duration) {
	stageRuns.WithLabelValues(stage, outcome).Inc()
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordRoute records a routing decision.
func RecordRoute(route string) {
	routeDecisions.WithLabelValues(route).Inc()
}

// RecordExtractionFallback counts an extraction that kept the previous record.
func RecordExtractionFallback() {
	extractionFallbacks.Inc()
}

// RecordTurn counts a completed turn; path is "short" or "long".
func RecordTurn(path string) {
	turns.WithLabelValues(path).Inc()
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
