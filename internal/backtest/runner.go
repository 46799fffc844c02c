package backtest

import (
	"context"
	"time"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/forecaster"
)

// Defaults.
const (
	DefaultEvalWeeks = 2
	Lead             = 7 // days between the simulated today and its target
)

// Runner executes the walk-forward backtest over the trailing evaluation window.
type Runner struct {
	evalWeeks int
}

// NewRunner creates a new backtest runner. Non-positive evalWeeks uses the default.
func NewRunner(evalWeeks int) *Runner {
	if evalWeeks <= 0 {
		evalWeeks = DefaultEvalWeeks
	}
	return &Runner{evalWeeks: evalWeeks}
}

// EvalWeeks returns the evaluation window length in weeks.
func (r *Runner) EvalWeeks() int {
	return r.evalWeeks
}

// Window returns the simulated days [start, end): the last evalWeeks*7 days
// of the series, never earlier than its first day.
func (r *Runner) Window(series *domain.Series) (start, end time.Time) {
	last := series.End()
	start = domain.AddDays(last, -r.evalWeeks*7+1)
	if first := series.Start(); start.Before(first) {
		start = first
	}
	return start, domain.AddDays(last, 1)
}

// Run simulates each day c of the window, forecasting c+Lead from the history
// up to c. Targets beyond the series are skipped. An empty series, or one
// without any observed day, yields all-NaN metrics.
func (r *Runner) Run(ctx context.Context, series *domain.Series, baseline, candidate forecaster.Forecaster) (*domain.BacktestResult, error) {
	engine := NewEngine(series.EntityID, baseline, candidate)
	if series.Len() == 0 || series.Observed == 0 {
		return engine.Results(), nil
	}

	start, end := r.Window(series)
	for _, cur := range domain.DateRange(start, end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := domain.AddDays(cur, Lead)
		actual, ok := series.At(target)
		if !ok {
			continue
		}
		if err := engine.OnCutoff(ctx, cur, series.Until(cur), target, float64(actual)); err != nil {
			return nil, err
		}
	}

	return engine.Results(), nil
}
