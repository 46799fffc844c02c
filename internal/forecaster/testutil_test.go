package forecaster

import (
	"time"

	"menu-forecast/internal/domain"
)

// monday is 2024-01-01.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// makeSeries builds a dense series starting at start with the given quantities.
func makeSeries(start time.Time, qty []int64, cal *domain.Calendar) *domain.Series {
	if cal == nil {
		cal = domain.NewCalendar(nil)
	}
	s := &domain.Series{EntityID: 1, Points: make([]domain.SeriesPoint, len(qty))}
	for i, q := range qty {
		s.Points[i] = cal.Point(domain.AddDays(start, i), q)
	}
	return s
}

// weeklyPattern returns n days of 10 on weekdays and 20 on weekends, starting on Monday.
func weeklyPattern(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		if i%7 >= 5 {
			out[i] = 20
		} else {
			out[i] = 10
		}
	}
	return out
}

func horizon(after time.Time, days int) []time.Time {
	out := make([]time.Time, days)
	for i := range out {
		out[i] = domain.AddDays(after, i+1)
	}
	return out
}
