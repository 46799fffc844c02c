// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "menu_forecast"

// Entity outcomes.
const (
	OutcomeCandidate    = "candidate"
	OutcomeBaseline     = "baseline"
	OutcomeShortHistory = "short_history"
	OutcomeFailed       = "failed"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Entity metrics
	EntitiesTotal     *prometheus.CounterVec
	ForecastsSaved    prometheus.Counter
	EntityFitDuration *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	CorpusSMAPE       *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
// A nil registerer falls back to a fresh private registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		EntitiesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "processed_total",
			Help:      "Total number of entities processed by outcome",
		}, []string{"outcome"}),
		ForecastsSaved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "forecast_rows_saved_total",
			Help:      "Total number of forecast rows written",
		}),
		EntityFitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "fit_duration_seconds",
			Help:      "Per-entity backtest and live forecast duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"model"}),

		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		CorpusSMAPE: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "corpus_smape",
			Help:      "Equal-weight corpus mean sMAPE of the last run",
		}, []string{"model"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// RecordEntity counts one processed entity.
func (m *Metrics) RecordEntity(outcome string, model string, fit time.Duration) {
	if m == nil {
		return
	}
	m.EntitiesTotal.WithLabelValues(outcome).Inc()
	if model != "" {
		m.EntityFitDuration.WithLabelValues(model).Observe(fit.Seconds())
	}
}

// RecordSaved adds n written forecast rows.
func (m *Metrics) RecordSaved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ForecastsSaved.Add(float64(n))
}

// RecordPipelineRun records a pipeline phase.
func (m *Metrics) RecordPipelineRun(phase, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordCorpus sets the corpus sMAPE gauges. NaN values are skipped.
func (m *Metrics) RecordCorpus(baseline, candidate float64) {
	if m == nil {
		return
	}
	if !math.IsNaN(baseline) {
		m.CorpusSMAPE.WithLabelValues(OutcomeBaseline).Set(baseline)
	}
	if !math.IsNaN(candidate) {
		m.CorpusSMAPE.WithLabelValues(OutcomeCandidate).Set(candidate)
	}
}

// RecordSuccess stamps the last successful pipeline run.
func (m *Metrics) RecordSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastSuccessfulPipeline.Set(float64(at.Unix()))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Push sends everything in g to a Pushgateway under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if job == "" {
		job = DefaultNamespace
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
