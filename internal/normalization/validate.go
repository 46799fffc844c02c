package normalization

import (
	"fmt"

	"menu-forecast/internal/domain"
)

// Check represents one series acceptance criterion.
type Check struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ValidationReport summarizes the acceptance checks over a set of series.
type ValidationReport struct {
	Entities int
	Days     int // series length (all series share the range)
	Checks   []Check
	AllPass  bool
	Errors   []string // per-entity integrity errors
}

// Validate runs the acceptance checks: no negative quantities, no date holes,
// features consistent with the date, and a shared date range across entities.
func Validate(series []*domain.Series) *ValidationReport {
	r := &ValidationReport{Entities: len(series), AllPass: true}
	if len(series) > 0 {
		r.Days = series[0].Len()
	}

	negatives, holes, badFeatures, misaligned := 0, 0, 0, 0
	for _, s := range series {
		for i, p := range s.Points {
			if p.Quantity < 0 {
				negatives++
				r.Errors = append(r.Errors, fmt.Sprintf("entity %d: negative quantity on %s", s.EntityID, domain.FormatDate(p.Date)))
			}
			if i > 0 && domain.DaysBetween(s.Points[i-1].Date, p.Date) != 1 {
				holes++
				r.Errors = append(r.Errors, fmt.Sprintf("entity %d: gap after %s", s.EntityID, domain.FormatDate(s.Points[i-1].Date)))
			}
			if p.DayOfWeek != domain.Weekday(p.Date) || p.IsMonthEnd != domain.IsMonthEnd(p.Date) {
				badFeatures++
			}
		}
		if len(series) > 0 && (s.Len() != series[0].Len() || !s.Start().Equal(series[0].Start())) {
			misaligned++
			r.Errors = append(r.Errors, fmt.Sprintf("entity %d: range differs from entity %d", s.EntityID, series[0].EntityID))
		}
	}

	r.add(Check{Name: "Negative quantities", Threshold: "= 0", Actual: fmt.Sprintf("%d", negatives), Pass: negatives == 0})
	r.add(Check{Name: "Date gaps", Threshold: "= 0", Actual: fmt.Sprintf("%d", holes), Pass: holes == 0})
	r.add(Check{Name: "Calendar features", Threshold: "= 0 mismatches", Actual: fmt.Sprintf("%d", badFeatures), Pass: badFeatures == 0})
	r.add(Check{Name: "Shared date range", Threshold: "= 0 misaligned", Actual: fmt.Sprintf("%d", misaligned), Pass: misaligned == 0})

	return r
}

func (r *ValidationReport) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Pass {
		r.AllPass = false
	}
}
