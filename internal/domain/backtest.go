package domain

import (
	"math"
	"time"
)

// Metric names.
const (
	MetricMAPE  = "mape"
	MetricSMAPE = "smape"
)

// MetricPair holds the aggregated errors of one forecaster.
// NaN means no scored pairs.
type MetricPair struct {
	MAPE  float64
	SMAPE float64
}

// UndefinedMetrics returns a pair with both metrics NaN.
func UndefinedMetrics() MetricPair {
	return MetricPair{MAPE: math.NaN(), SMAPE: math.NaN()}
}

// Get returns the metric by name. Unknown names yield NaN.
func (m MetricPair) Get(name string) float64 {
	switch name {
	case MetricMAPE:
		return m.MAPE
	case MetricSMAPE:
		return m.SMAPE
	default:
		return math.NaN()
	}
}

// BacktestStep records one simulated day of the walk-forward evaluation.
type BacktestStep struct {
	Cutoff    time.Time // simulated "today"
	Target    time.Time // cutoff + 7 days
	Actual    float64
	Baseline  float64
	Candidate float64 // NaN if the candidate had no prediction
}

// BacktestResult is the walk-forward evaluation of one entity.
type BacktestResult struct {
	EntityID     int64
	BaselineTag  string
	CandidateTag string
	Baseline     MetricPair
	Candidate    MetricPair
	Points       int // scored target dates
	Steps        []BacktestStep
}

// MetricRow is one flattened (entity, metric, value) record.
type MetricRow struct {
	EntityID int64
	Name     string
	Value    float64
}

// Metrics flattens the result into the four named metrics.
func (r *BacktestResult) Metrics() []MetricRow {
	return []MetricRow{
		{EntityID: r.EntityID, Name: "mape_baseline", Value: r.Baseline.MAPE},
		{EntityID: r.EntityID, Name: "smape_baseline", Value: r.Baseline.SMAPE},
		{EntityID: r.EntityID, Name: "mape_candidate", Value: r.Candidate.MAPE},
		{EntityID: r.EntityID, Name: "smape_candidate", Value: r.Candidate.SMAPE},
	}
}

// SelectionSource tells which branch won model selection.
type SelectionSource string

const (
	SourceBaseline  SelectionSource = "baseline"
	SourceCandidate SelectionSource = "candidate"
)

// Selection reasons.
const (
	ReasonCandidateWon       = "candidate_won"
	ReasonCandidateLost      = "candidate_lost"
	ReasonCandidateUndefined = "candidate_undefined"
	ReasonCandidateNoOutput  = "candidate_no_live_forecast"
)

// Selection is the per-entity model selection outcome.
type Selection struct {
	EntityID int64
	Source   SelectionSource
	ModelTag string
	Reason   string
}
