package domain

import "time"

// Observation is one aggregated sales fact for a menu item.
// Corresponds to a row of the menu_daily_qty view (order_items joined with orders).
type Observation struct {
	EntityID int64     // menu_id
	Date     time.Time // calendar day, normalized to UTC midnight
	Quantity int64     // units sold that day
}

// SeriesPoint is one day of a dense per-entity series with its calendar features.
type SeriesPoint struct {
	Date       time.Time // UTC midnight
	Quantity   int64     // >= 0, zero-filled when no sales
	DayOfWeek  int       // Monday=0 ... Sunday=6
	IsMonthEnd bool
	IsHoliday  bool
}

// Series is the dense daily history of one entity.
// Points are ascending and exactly one day apart.
type Series struct {
	EntityID int64
	Points   []SeriesPoint

	// Observed counts the days that had at least one raw observation.
	// Zero means the series is pure zero fill. Set by the builder for the full range.
	Observed int
}

// Len returns the number of days in the series.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Start returns the first date. Zero time for an empty series.
func (s *Series) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// End returns the last date. Zero time for an empty series.
func (s *Series) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// index returns the position of date in Points using the contiguity invariant.
func (s *Series) index(date time.Time) (int, bool) {
	if s.Len() == 0 {
		return 0, false
	}
	i := DaysBetween(s.Points[0].Date, Day(date))
	if i < 0 || i >= len(s.Points) {
		return 0, false
	}
	return i, true
}

// At returns the quantity observed on date and whether the date is inside the series.
func (s *Series) At(date time.Time) (int64, bool) {
	i, ok := s.index(date)
	if !ok {
		return 0, false
	}
	return s.Points[i].Quantity, true
}

// Contains reports whether date falls inside the series range.
func (s *Series) Contains(date time.Time) bool {
	_, ok := s.index(date)
	return ok
}

// Until returns the prefix of the series with dates <= cutoff.
// The returned series shares its backing array with s and must not be mutated.
func (s *Series) Until(cutoff time.Time) *Series {
	out := &Series{EntityID: s.EntityID}
	if s.Len() == 0 {
		return out
	}
	n := DaysBetween(s.Points[0].Date, Day(cutoff)) + 1
	switch {
	case n <= 0:
		return out
	case n > len(s.Points):
		n = len(s.Points)
	}
	out.Points = s.Points[:n:n]
	return out
}

// Values returns the quantities as float64 in date order.
func (s *Series) Values() []float64 {
	out := make([]float64, s.Len())
	for i, p := range s.Points {
		out[i] = float64(p.Quantity)
	}
	return out
}
