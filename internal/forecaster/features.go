package forecaster

import (
	"time"

	"menu-forecast/internal/domain"
)

// NumLags is the number of lagged quantities in a feature row.
const NumLags = 7

// Feature row layout.
const (
	colMonthEnd = NumLags     // is_month_end
	colHoliday  = NumLags + 1 // is_holiday
	colDowStart = NumLags + 2 // dow one-hot, Monday first
	numFeatures = colDowStart + 7
)

// FeatureNames returns the column names of a feature row.
func FeatureNames() []string {
	names := []string{"lag1", "lag2", "lag3", "lag4", "lag5", "lag6", "lag7", "is_month_end", "holiday"}
	for _, d := range []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"} {
		names = append(names, "dow_"+d)
	}
	return names
}

// fillRow writes the features for date into dst.
// recent holds prior values in date order; its last NumLags entries are used,
// the last one being lag1.
func fillRow(dst []float64, recent []float64, date time.Time, holiday bool) {
	n := len(recent)
	for l := 1; l <= NumLags; l++ {
		dst[l-1] = recent[n-l]
	}
	dst[colMonthEnd] = boolFloat(domain.IsMonthEnd(date))
	dst[colHoliday] = boolFloat(holiday)
	for i := colDowStart; i < numFeatures; i++ {
		dst[i] = 0
	}
	dst[colDowStart+domain.Weekday(date)] = 1
}

// BuildFeatures builds the training matrix for a series.
// Row i corresponds to date Points[i+NumLags]; the first NumLags dates have
// undefined lags and are dropped. Lags only reference strictly earlier dates.
func BuildFeatures(s *domain.Series) (x [][]float64, y []float64) {
	n := s.Len()
	if n <= NumLags {
		return nil, nil
	}

	values := s.Values()
	x = make([][]float64, 0, n-NumLags)
	y = make([]float64, 0, n-NumLags)
	for i := NumLags; i < n; i++ {
		row := make([]float64, numFeatures)
		p := s.Points[i]
		fillRow(row, values[:i], p.Date, p.IsHoliday)
		x = append(x, row)
		y = append(y, values[i])
	}
	return x, y
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
