package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	// Registry owns these metrics; /metrics serves it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	commits          *prometheus.CounterVec
	commitErrors     prometheus.Counter
	reconcileRuns    prometheus.Counter
	reconcileChanged prometheus.Counter
	auditFailures    prometheus.Counter
}

// NewMetrics registers everything on a private registry, so tests can call
// it repeatedly without duplicate-collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ncd_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncd_state_commits_total",
				Help: "Dataset commits by reason.",
			},
			[]string{"reason"},
		),
		commitErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ncd_state_commit_errors_total",
			Help: "Dataset commits that failed to persist.",
		}),
		reconcileRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ncd_reconcile_runs_total",
			Help: "Status reconciliation passes.",
		}),
		reconcileChanged: factory.NewCounter(prometheus.CounterOpts{
			Name: "ncd_reconcile_changed_series_total",
			Help: "Series whose status changed during reconciliation.",
		}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ncd_audit_write_failures_total",
			Help: "Audit log writes that failed and were dropped.",
		}),
	}
}

func (m *Metrics) RecordRequestDuration(route string, d time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveCommit(reason string) { m.commits.WithLabelValues(reason).Inc() }

func (m *Metrics) ObserveCommitError() { m.commitErrors.Inc() }

func (m *Metrics) ObserveReconcile(changed int) {
	m.reconcileRuns.Inc()
	m.reconcileChanged.Add(float64(changed))
}

func (m *Metrics) ObserveAuditFailure() { m.auditFailures.Inc() }

// CommitCount reads back the commit counter for a reason.
func (m *Metrics) CommitCount(reason string) float64 {
	return counterValue(m.commits.WithLabelValues(reason))
}

// ReconcileRuns reads back the reconcile run counter.
func (m *Metrics) ReconcileRuns() float64 { return counterValue(m.reconcileRuns) }

func counterValue(c prometheus.Counter) float64 {
	out := &dto.Metric{}
	if err := c.Write(out); err != nil {
		return 0
	}
	if out.Counter != nil && out.Counter.Value != nil {
		return *out.Counter.Value
	}
	return 0
}
