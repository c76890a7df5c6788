package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	Commits            *prometheus.CounterVec
	CommitDuration     *prometheus.HistogramVec
	ValidationFailures *prometheus.CounterVec
	HistoryOperations  *prometheus.CounterVec
}

// NewMetrics registers the tendril collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_commits_total",
			Help: "Committed parameter mutations by source",
		}, []string{"source"}),
		CommitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tendril_commit_duration_seconds",
			Help:    "Time from mutation request to commit, validation included",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"source"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_validation_failures_total",
			Help: "Field errors reported by rejected mutations, by error code",
		}, []string{"code"}),
		HistoryOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_history_operations_total",
			Help: "Undo, redo and transaction rollbacks",
		}, []string{"op"}),
	}
}

// Hooks returns lifecycle hooks recording into m. Merge them with other
// hooks through LifecycleHooks.Merge or runtime.WithHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues(e.Source).Inc()
			m.CommitDuration.WithLabelValues(e.Source).Observe(e.Duration.Seconds())
		},
		OnValidationFailed: func(_ context.Context, e *domain.ValidationEvent) {
			for _, fe := range e.Errors {
				m.ValidationFailures.WithLabelValues(fe.Code).Inc()
			}
		},
		OnUndo: func(context.Context, *domain.HistoryEvent) {
			m.HistoryOperations.WithLabelValues("undo").Inc()
		},
		OnRedo: func(context.Context, *domain.HistoryEvent) {
			m.HistoryOperations.WithLabelValues("redo").Inc()
		},
		OnRollback: func(context.Context, *domain.HistoryEvent) {
			m.HistoryOperations.WithLabelValues("rollback").Inc()
		},
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
