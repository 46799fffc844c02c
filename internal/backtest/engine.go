package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/forecaster"
	"menu-forecast/internal/metrics"
)

// Engine scores a baseline/candidate pair one simulated day at a time.
// Not safe for concurrent use; create one per entity.
type Engine struct {
	baseline  forecaster.Forecaster
	candidate forecaster.Forecaster
	result    *domain.BacktestResult

	baselinePairs  []metrics.Pair
	candidatePairs []metrics.Pair
	candidateGaps  int
}

// NewEngine creates a new backtest engine for one entity.
func NewEngine(entityID int64, baseline, candidate forecaster.Forecaster) *Engine {
	return &Engine{
		baseline:  baseline,
		candidate: candidate,
		result: &domain.BacktestResult{
			EntityID:     entityID,
			BaselineTag:  baseline.Name(),
			CandidateTag: candidate.Name(),
			Steps:        make([]domain.BacktestStep, 0),
		},
	}
}

// OnCutoff forecasts target from the history visible at cutoff and
// records the step against the actual quantity.
func (e *Engine) OnCutoff(ctx context.Context, cutoff time.Time, history *domain.Series, target time.Time, actual float64) error {
	dates := []time.Time{target}

	base, err := e.baseline.FitPredict(ctx, history, dates)
	if err != nil {
		return fmt.Errorf("baseline %s: %w", e.baseline.Name(), err)
	}
	cand, err := e.candidate.FitPredict(ctx, history, dates)
	if err != nil {
		return fmt.Errorf("candidate %s: %w", e.candidate.Name(), err)
	}

	step := domain.BacktestStep{
		Cutoff:    domain.Day(cutoff),
		Target:    domain.Day(target),
		Actual:    actual,
		Baseline:  base[0].Point,
		Candidate: cand[0].Point,
	}
	e.result.Steps = append(e.result.Steps, step)

	e.baselinePairs = append(e.baselinePairs, metrics.Pair{Actual: actual, Predicted: step.Baseline})
	if math.IsNaN(step.Candidate) {
		e.candidateGaps++
	} else {
		e.candidatePairs = append(e.candidatePairs, metrics.Pair{Actual: actual, Predicted: step.Candidate})
	}
	return nil
}

// Results aggregates the recorded steps. The candidate is only scored when
// it produced a prediction for every step.
func (e *Engine) Results() *domain.BacktestResult {
	e.result.Points = len(e.result.Steps)
	e.result.Baseline = metrics.Aggregate(e.baselinePairs)
	if e.candidateGaps > 0 {
		e.result.Candidate = domain.UndefinedMetrics()
	} else {
		e.result.Candidate = metrics.Aggregate(e.candidatePairs)
	}
	return e.result
}
