package decision

import (
	"math"

	"menu-forecast/internal/domain"
)

// Selector picks the per-entity winner between baseline and candidate.
type Selector struct {
	metric string
}

// NewSelector creates a selector comparing on metric (mape or smape).
// Empty or unknown metrics fall back to sMAPE.
func NewSelector(metric string) *Selector {
	if metric != domain.MetricMAPE {
		metric = domain.MetricSMAPE
	}
	return &Selector{metric: metric}
}

// Metric returns the comparison metric name.
func (s *Selector) Metric() string {
	return s.metric
}

// Select compares the candidate against the baseline on the configured metric.
// An undefined candidate loses; a tie goes to the candidate.
func (s *Selector) Select(result *domain.BacktestResult) domain.Selection {
	sel := domain.Selection{
		EntityID: result.EntityID,
		Source:   domain.SourceBaseline,
		ModelTag: result.BaselineTag,
	}

	cand := result.Candidate.Get(s.metric)
	base := result.Baseline.Get(s.metric)
	switch {
	case math.IsNaN(cand):
		sel.Reason = domain.ReasonCandidateUndefined
	case cand > base:
		sel.Reason = domain.ReasonCandidateLost
	default:
		sel.Source = domain.SourceCandidate
		sel.ModelTag = result.CandidateTag
		sel.Reason = domain.ReasonCandidateWon
	}
	return sel
}

// Fallback returns the baseline selection used when the selected candidate
// produced no live forecast.
func Fallback(result *domain.BacktestResult) domain.Selection {
	return domain.Selection{
		EntityID: result.EntityID,
		Source:   domain.SourceBaseline,
		ModelTag: result.BaselineTag,
		Reason:   domain.ReasonCandidateNoOutput,
	}
}
