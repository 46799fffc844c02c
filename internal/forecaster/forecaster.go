// Package forecaster implements the baseline and candidate demand forecasters.
//
// Every forecaster satisfies the same capability: given the history visible
// at some cutoff and a list of target dates, return one prediction per date.
// Baselines always produce a value. Candidates may return undefined
// predictions (NaN) when history is too short, which callers treat as a
// signal to fall back to the baseline.
package forecaster

import (
	"context"
	"time"

	"menu-forecast/internal/domain"
)

// Forecaster produces point forecasts with bounds for target dates.
type Forecaster interface {
	// Name returns the model tag written with persisted rows.
	Name() string

	// FitPredict fits on history (all dates <= history.End()) and predicts dates.
	// The result has one entry per requested date, in the same order.
	// Insufficient history yields undefined predictions, not an error.
	FitPredict(ctx context.Context, history *domain.Series, dates []time.Time) ([]domain.Prediction, error)
}

// History is a date -> quantity lookup.
type History interface {
	At(date time.Time) (int64, bool)
}

// MapHistory is a sparse history keyed by calendar date.
type MapHistory map[time.Time]int64

// At returns the quantity on date and whether it is present.
func (h MapHistory) At(date time.Time) (int64, bool) {
	v, ok := h[domain.Day(date)]
	return v, ok
}

// Compile-time interface checks.
var (
	_ History = (*domain.Series)(nil)
	_ History = MapHistory(nil)
)
