package decision

import (
	"errors"
	"math"

	"menu-forecast/internal/domain"
)

// Decision represents the corpus acceptance result.
type Decision string

const (
	DecisionPass Decision = "PASS"
	DecisionFail Decision = "FAIL"
)

// Validation errors
var (
	ErrNilInput        = errors.New("decision input is nil")
	ErrUnknownMetric   = errors.New("unknown selection metric")
	ErrNegativeCount   = errors.New("entity counts must be non-negative")
	ErrScoredOverTotal = errors.New("scored entities exceed total")
)

// DecisionInput contains the corpus numbers the acceptance gate looks at.
type DecisionInput struct {
	Entities int

	// corpus sMAPE means, NaN when no entity was scored
	BaselineSMAPE  float64
	CandidateSMAPE float64

	// corpus MAPE means, informational
	BaselineMAPE  float64
	CandidateMAPE float64

	BaselineScored  int
	CandidateScored int

	// per-entity outcome on the selection metric
	Metric        string
	CandidateWins int
	WinRate       float64

	Tolerance float64
}

// Validate checks internal consistency of the input.
func (d *DecisionInput) Validate() error {
	if d == nil {
		return ErrNilInput
	}
	if d.Metric != domain.MetricMAPE && d.Metric != domain.MetricSMAPE {
		return ErrUnknownMetric
	}
	if d.Entities < 0 || d.BaselineScored < 0 || d.CandidateScored < 0 || d.CandidateWins < 0 {
		return ErrNegativeCount
	}
	if d.BaselineScored > d.Entities || d.CandidateScored > d.Entities || d.CandidateWins > d.CandidateScored {
		return ErrScoredOverTotal
	}
	return nil
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// DecisionResult contains the final decision with checklist.
type DecisionResult struct {
	Decision Decision
	Criteria []CriterionResult
	Input    DecisionInput
}

func isUndefined(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
