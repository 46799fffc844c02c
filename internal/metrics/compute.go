package metrics

import (
	"math"

	"menu-forecast/internal/domain"
)

// Epsilon floors metric denominators so zero actuals do not divide by zero.
const Epsilon = 1e-8

// Pair is one scored (actual, predicted) observation.
type Pair struct {
	Actual    float64
	Predicted float64
}

// MAPE computes mean(|a - p| / max(eps, |a|)).
// Extra elements of the longer slice are ignored. Empty input yields NaN.
func MAPE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(actual[i]-predicted[i]) / math.Max(Epsilon, math.Abs(actual[i]))
	}
	return sum / float64(n)
}

// SMAPE computes mean(|a - p| / max(eps, (|a| + |p|) / 2)).
// Result lies in [0, 2] for finite inputs. Empty input yields NaN.
func SMAPE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		denom := (math.Abs(actual[i]) + math.Abs(predicted[i])) / 2
		sum += math.Abs(actual[i]-predicted[i]) / math.Max(Epsilon, denom)
	}
	return sum / float64(n)
}

// Aggregate computes MAPE and sMAPE over pairs.
func Aggregate(pairs []Pair) domain.MetricPair {
	if len(pairs) == 0 {
		return domain.UndefinedMetrics()
	}
	actual := make([]float64, len(pairs))
	predicted := make([]float64, len(pairs))
	for i, p := range pairs {
		actual[i] = p.Actual
		predicted[i] = p.Predicted
	}
	return domain.MetricPair{
		MAPE:  MAPE(actual, predicted),
		SMAPE: SMAPE(actual, predicted),
	}
}

// NaNMean returns the mean of the non-NaN values and how many were used.
// Returns NaN when nothing is left.
func NaNMean(values []float64) (float64, int) {
	sum := 0.0
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), 0
	}
	return sum / float64(n), n
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}
