package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-date layout used for ds columns.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at UTC midnight.
// The wall-clock date of t is kept; the location is dropped.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DateRange returns every date in the half-open interval [start, end).
func DateRange(start, end time.Time) []time.Time {
	n := DaysBetween(start, end)
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = AddDays(start, i)
	}
	return out
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Weekday returns the day of week with Monday=0 ... Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsMonthEnd reports whether t is the last day of its month.
func IsMonthEnd(t time.Time) bool {
	return AddDays(t, 1).Day() == 1
}

// Calendar holds the holiday list used for the is_holiday feature.
// Matching is by exact calendar date. The zero value has no holidays.
type Calendar struct {
	holidays map[time.Time]struct{}
}

// NewCalendar creates a calendar from a list of holiday dates.
func NewCalendar(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[Day(h)] = struct{}{}
	}
	return c
}

// IsHoliday reports whether t is a listed holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.holidays[Day(t)]
	return ok
}

// Len returns the number of distinct holidays.
func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.holidays)
}

// Point builds a series point for date with calendar features filled in.
func (c *Calendar) Point(date time.Time, qty int64) SeriesPoint {
	d := Day(date)
	return SeriesPoint{
		Date:       d,
		Quantity:   qty,
		DayOfWeek:  Weekday(d),
		IsMonthEnd: IsMonthEnd(d),
		IsHoliday:  c.IsHoliday(d),
	}
}
