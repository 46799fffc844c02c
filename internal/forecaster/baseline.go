package forecaster

import (
	"context"
	"time"

	"menu-forecast/internal/domain"
)

// DefaultKWeeks is the default seasonal moving-average depth.
const DefaultKWeeks = 4

// NaiveLag7 forecasts each date with the quantity observed 7 days earlier.
// Dates whose lag is absent from history forecast 0.
func NaiveLag7(history History, dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		if v, ok := history.At(domain.AddDays(d, -7)); ok {
			out[i] = float64(v)
		}
	}
	return out
}

// SeasonalMovingAverage forecasts each date with the mean of the quantities at
// d-7, d-14, ..., d-7k that are present in history. No values forecasts 0.
func SeasonalMovingAverage(history History, dates []time.Time, k int) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		sum := 0.0
		n := 0
		for w := 1; w <= k; w++ {
			if v, ok := history.At(domain.AddDays(d, -7*w)); ok {
				sum += float64(v)
				n++
			}
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// NaiveForecaster wraps NaiveLag7 as a Forecaster.
type NaiveForecaster struct{}

// NewNaiveForecaster creates the lag-7 baseline.
func NewNaiveForecaster() *NaiveForecaster {
	return &NaiveForecaster{}
}

// Name returns "naive_tminus7".
func (f *NaiveForecaster) Name() string {
	return domain.ModelTagNaive
}

// FitPredict returns lag-7 values with lower = upper = point.
func (f *NaiveForecaster) FitPredict(ctx context.Context, history *domain.Series, dates []time.Time) ([]domain.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pointPredictions(dates, NaiveLag7(history, dates)), nil
}

// SeasonalForecaster wraps SeasonalMovingAverage as a Forecaster.
type SeasonalForecaster struct {
	k int
}

// NewSeasonalForecaster creates the k-week seasonal baseline.
// Non-positive k falls back to DefaultKWeeks.
func NewSeasonalForecaster(k int) *SeasonalForecaster {
	if k <= 0 {
		k = DefaultKWeeks
	}
	return &SeasonalForecaster{k: k}
}

// Name returns "seasonal_ma_k{k}".
func (f *SeasonalForecaster) Name() string {
	return domain.SeasonalTag(f.k)
}

// K returns the number of weeks averaged.
func (f *SeasonalForecaster) K() int {
	return f.k
}

// FitPredict returns seasonal averages with lower = upper = point.
func (f *SeasonalForecaster) FitPredict(ctx context.Context, history *domain.Series, dates []time.Time) ([]domain.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pointPredictions(dates, SeasonalMovingAverage(history, dates, f.k)), nil
}

func pointPredictions(dates []time.Time, values []float64) []domain.Prediction {
	out := make([]domain.Prediction, len(dates))
	for i, d := range dates {
		out[i] = domain.PointPrediction(d, values[i])
	}
	return out
}

// Compile-time interface checks.
var (
	_ Forecaster = (*NaiveForecaster)(nil)
	_ Forecaster = (*SeasonalForecaster)(nil)
)
