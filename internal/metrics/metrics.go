// Package metrics exposes Prometheus instrumentation for digest runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsDigest/internal/domain"
)

const namespace = "newsdigest"

// Run outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeEmpty   = "empty"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds all collectors of the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	LastSuccess      prometheus.Gauge
	ArticlesTotal    *prometheus.CounterVec
	DedupSkipsTotal  *prometheus.CounterVec
	ItemFailureTotal *prometheus.CounterVec
}

// New creates a private registry with Go runtime collectors and all pipeline metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without error",
		}),
		ArticlesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles leaving each pipeline stage",
		}, []string{"stage"}),
		DedupSkipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_skips_total",
			Help:      "Candidates dropped as already processed, by match reason",
		}, []string{"reason"}),
		ItemFailureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_failures_total",
			Help:      "Per-article failures by stage",
		}, []string{"stage"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Articles adds n articles that passed stage.
func (m *Metrics) Articles(stage domain.Stage, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ArticlesTotal.WithLabelValues(string(stage)).Add(float64(n))
}

// DedupSkip counts one duplicate by reason.
func (m *Metrics) DedupSkip(reason domain.MatchedBy) {
	if m == nil {
		return
	}
	m.DedupSkipsTotal.WithLabelValues(string(reason)).Inc()
}

// ItemFailed counts one per-article failure.
func (m *Metrics) ItemFailed(stage domain.Stage) {
	if m == nil {
		return
	}
	m.ItemFailureTotal.WithLabelValues(string(stage)).Inc()
}

// RunSkipped records a trigger that arrived while another run was active.
func (m *Metrics) RunSkipped(trigger domain.Trigger) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(trigger), OutcomeSkipped).Inc()
}

// RunFinished records the outcome and duration of a completed run.
func (m *Metrics) RunFinished(res domain.RunResult) {
	if m == nil {
		return
	}

	outcome := OutcomeEmpty
	switch {
	case res.Err != nil:
		outcome = OutcomeFailed
	case res.Sent:
		outcome = OutcomeSent
	}

	m.RunsTotal.WithLabelValues(string(res.Trigger), outcome).Inc()
	m.RunDuration.Observe(res.Duration().Seconds())
	if res.Err == nil {
		m.LastSuccess.Set(float64(res.FinishedAt.Unix()))
	}
}
