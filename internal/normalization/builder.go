package normalization

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"menu-forecast/internal/domain"
)

// Builder errors.
var (
	// ErrInvalidRange is matched by *InvalidRangeError via errors.Is.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrEmptySource is returned when neither the catalogue nor the
	// observations name a single entity.
	ErrEmptySource = errors.New("empty source: no entities known")
)

// InvalidRangeError reports a start date after the end date.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		domain.FormatDate(e.Start), domain.FormatDate(e.End))
}

// Is makes errors.Is(err, ErrInvalidRange) hold.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// BuildInput is the raw material for one Build call.
type BuildInput struct {
	Observations []*domain.Observation
	EntityIDs    []int64    // known catalogue; entities without sales get all-zero series
	Start        *time.Time // nil: earliest observed date
	End          *time.Time // nil: latest observed date
}

// Builder turns raw observations into dense per-entity daily series.
type Builder struct {
	calendar *domain.Calendar
	now      func() time.Time // Injectable clock for the no-observation fallback
}

// NewBuilder creates a series builder. A nil calendar means no holidays.
func NewBuilder(calendar *domain.Calendar) *Builder {
	if calendar == nil {
		calendar = domain.NewCalendar(nil)
	}
	return &Builder{
		calendar: calendar,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Calendar returns the holiday calendar used for features.
func (b *Builder) Calendar() *domain.Calendar {
	return b.calendar
}

// Build produces one dense series per entity, ascending by entity id.
// Every date in [start, end] is present; missing days are zero-filled,
// negative quantities are clamped to 0, same-day quantities are summed.
func (b *Builder) Build(in BuildInput) ([]*domain.Series, error) {
	entities := collectEntities(in)
	if len(entities) == 0 {
		return nil, ErrEmptySource
	}

	start, end := b.resolveRange(in)
	if start.After(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	// entity -> date -> summed quantity
	sums := make(map[int64]map[time.Time]int64, len(entities))
	for _, o := range in.Observations {
		if o == nil {
			continue
		}
		d := domain.Day(o.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		byDate, ok := sums[o.EntityID]
		if !ok {
			byDate = make(map[time.Time]int64)
			sums[o.EntityID] = byDate
		}
		byDate[d] += clamp(o.Quantity)
	}

	dates := domain.DateRange(start, domain.AddDays(end, 1))
	out := make([]*domain.Series, 0, len(entities))
	for _, id := range entities {
		s := &domain.Series{EntityID: id, Points: make([]domain.SeriesPoint, len(dates))}
		byDate := sums[id]
		for i, d := range dates {
			s.Points[i] = b.calendar.Point(d, byDate[d])
		}
		s.Observed = len(byDate)
		out = append(out, s)
	}

	return out, nil
}

// resolveRange fills unset bounds from the observed min/max date,
// falling back to the clock's date when nothing was observed.
func (b *Builder) resolveRange(in BuildInput) (time.Time, time.Time) {
	var minDate, maxDate time.Time
	seen := false
	for _, o := range in.Observations {
		if o == nil {
			continue
		}
		d := domain.Day(o.Date)
		if !seen || d.Before(minDate) {
			minDate = d
		}
		if !seen || d.After(maxDate) {
			maxDate = d
		}
		seen = true
	}
	if !seen {
		today := domain.Day(b.now())
		minDate, maxDate = today, today
	}

	start, end := minDate, maxDate
	if in.Start != nil {
		start = domain.Day(*in.Start)
	}
	if in.End != nil {
		end = domain.Day(*in.End)
	}
	return start, end
}

// collectEntities returns the sorted union of catalogue and observed entity ids.
func collectEntities(in BuildInput) []int64 {
	set := make(map[int64]struct{}, len(in.EntityIDs))
	for _, id := range in.EntityIDs {
		set[id] = struct{}{}
	}
	for _, o := range in.Observations {
		if o != nil {
			set[o.EntityID] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func clamp(q int64) int64 {
	if q < 0 {
		return 0
	}
	return q
}
