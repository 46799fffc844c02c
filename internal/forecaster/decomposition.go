package forecaster

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat"

	"menu-forecast/internal/domain"
)

const (
	season        = 7
	trendWindow   = 28 // trailing days used for the trend line
	minFullWeeks  = 2
	halfMAWindow  = season / 2
	minTrendSlots = 2
)

// Decomposition is a classical additive decomposition forecaster:
// a centered 7-day moving-average trend, weekday seasonal indices,
// a holiday offset, and a linear extrapolation of the deseasonalized
// tail. Intervals are point +/- z * residual std dev.
type Decomposition struct {
	minHistory int
	intervalZ  float64
	calendar   *domain.Calendar
}

// NewDecomposition creates the decomposition forecaster.
func NewDecomposition(minHistory int, intervalZ float64, calendar *domain.Calendar) *Decomposition {
	if minHistory <= 0 {
		minHistory = DefaultMinHistory
	}
	if calendar == nil {
		calendar = domain.NewCalendar(nil)
	}
	return &Decomposition{minHistory: minHistory, intervalZ: intervalZ, calendar: calendar}
}

// Name returns "decomposition".
func (f *Decomposition) Name() string {
	return domain.ModelTagDecomposition
}

// Components is a fitted decomposition.
type Components struct {
	Seasonal   [season]float64 // indexed by weekday, Monday=0, mean zero
	Intercept  float64         // trend line value at day index 0
	Slope      float64         // trend change per day
	HolidayAdj float64         // mean residual on holidays
	Sigma      float64         // residual std dev
	Origin     time.Time       // date of day index 0
}

// Level returns the fitted value for date before clamping.
func (c *Components) Level(date time.Time, holiday bool) float64 {
	t := float64(domain.DaysBetween(c.Origin, date))
	v := c.Intercept + c.Slope*t + c.Seasonal[domain.Weekday(date)]
	if holiday {
		v += c.HolidayAdj
	}
	return v
}

// Decompose fits the components. Returns nil when the series is shorter than
// the minimum history or two full weeks.
func (f *Decomposition) Decompose(ctx context.Context, s *domain.Series) (*Components, error) {
	n := s.Len()
	if n < f.minHistory || n < minFullWeeks*season {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := s.Values()

	// centered moving average, defined for [half, n-half)
	trend := make([]float64, n)
	defined := make([]bool, n)
	for i := halfMAWindow; i < n-halfMAWindow; i++ {
		trend[i] = stat.Mean(values[i-halfMAWindow:i+halfMAWindow+1], nil)
		defined[i] = true
	}

	// weekday indices from detrended values
	var sums [season]float64
	var counts [season]int
	for i, p := range s.Points {
		if !defined[i] || p.IsHoliday {
			continue
		}
		sums[p.DayOfWeek] += values[i] - trend[i]
		counts[p.DayOfWeek]++
	}
	c := &Components{Origin: s.Start()}
	for w := 0; w < season; w++ {
		if counts[w] > 0 {
			c.Seasonal[w] = sums[w] / float64(counts[w])
		}
	}
	seasonalMean := stat.Mean(c.Seasonal[:], nil)
	for w := range c.Seasonal {
		c.Seasonal[w] -= seasonalMean
	}

	// holiday offset from the decomposition residual
	var holidayResid []float64
	for i, p := range s.Points {
		if defined[i] && p.IsHoliday {
			holidayResid = append(holidayResid, values[i]-trend[i]-c.Seasonal[p.DayOfWeek])
		}
	}
	if len(holidayResid) > 0 {
		c.HolidayAdj = stat.Mean(holidayResid, nil)
	}

	// linear trend over the deseasonalized tail
	from := max(0, n-trendWindow)
	xs := make([]float64, 0, n-from)
	ys := make([]float64, 0, n-from)
	for i := from; i < n; i++ {
		p := s.Points[i]
		v := values[i] - c.Seasonal[p.DayOfWeek]
		if p.IsHoliday {
			v -= c.HolidayAdj
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}
	if len(xs) < minTrendSlots {
		return nil, nil
	}
	c.Intercept, c.Slope = stat.LinearRegression(xs, ys, nil, false)

	resid := make([]float64, 0, len(xs))
	for i := from; i < n; i++ {
		p := s.Points[i]
		resid = append(resid, values[i]-c.Level(p.Date, p.IsHoliday))
	}
	c.Sigma = residualStdDev(resid)

	return c, nil
}

// FitPredict decomposes history and extrapolates to every requested date.
func (f *Decomposition) FitPredict(ctx context.Context, history *domain.Series, dates []time.Time) ([]domain.Prediction, error) {
	out := undefinedPredictions(dates)
	if len(dates) == 0 {
		return out, nil
	}

	c, err := f.Decompose(ctx, history)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return out, nil
	}

	halfWidth := f.intervalZ * c.Sigma
	for i, d := range dates {
		out[i] = intervalPrediction(d, c.Level(d, f.calendar.IsHoliday(d)), halfWidth)
	}
	return out, nil
}

// Compile-time interface check.
var _ Forecaster = (*Decomposition)(nil)
