package domain

import (
	"fmt"
	"math"
	"time"
)

// Model tags identify the forecaster that produced a row.
const (
	ModelTagNaive         = "naive_tminus7"
	ModelTagRidge         = "ridge"
	ModelTagLasso         = "lasso"
	ModelTagDecomposition = "decomposition"
)

// SeasonalTag returns the tag of the k-week seasonal moving average.
func SeasonalTag(k int) string {
	return fmt.Sprintf("seasonal_ma_k%d", k)
}

// Prediction is one forecaster output for a single date.
// An undefined prediction has NaN in all three values.
type Prediction struct {
	Date  time.Time
	Point float64
	Lower float64
	Upper float64
}

// UndefinedPrediction returns the "no prediction" marker for date.
func UndefinedPrediction(date time.Time) Prediction {
	nan := math.NaN()
	return Prediction{Date: Day(date), Point: nan, Lower: nan, Upper: nan}
}

// PointPrediction returns a prediction with a degenerate interval (lower = upper = point).
func PointPrediction(date time.Time, v float64) Prediction {
	return Prediction{Date: Day(date), Point: v, Lower: v, Upper: v}
}

// Defined reports whether the prediction carries a value.
func (p Prediction) Defined() bool {
	return !math.IsNaN(p.Point)
}

// AllDefined reports whether every prediction carries a value.
func AllDefined(preds []Prediction) bool {
	for _, p := range preds {
		if !p.Defined() {
			return false
		}
	}
	return true
}

// Forecast is a persisted forecast row.
// Corresponds to menu_daily_forecast; unique on (EntityID, Date, ModelTag).
type Forecast struct {
	EntityID  int64
	Date      time.Time // forecast target date
	ModelTag  string    // producing forecaster, also the selection provenance
	Point     float64   // yhat
	Lower     float64   // yhat_lo
	Upper     float64   // yhat_hi
	TrainedAt time.Time // run timestamp
}

// ForecastsFromPredictions converts predictions into forecast rows.
func ForecastsFromPredictions(entityID int64, tag string, trainedAt time.Time, preds []Prediction) []*Forecast {
	out := make([]*Forecast, 0, len(preds))
	for _, p := range preds {
		out = append(out, &Forecast{
			EntityID:  entityID,
			Date:      Day(p.Date),
			ModelTag:  tag,
			Point:     p.Point,
			Lower:     p.Lower,
			Upper:     p.Upper,
			TrainedAt: trainedAt,
		})
	}
	return out
}
