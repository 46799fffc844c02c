package decision

import (
	"menu-forecast/internal/domain"
	"menu-forecast/internal/metrics"
)

// BuildInput creates DecisionInput from a corpus summary.
// metric is the per-entity selection metric the win count was computed on;
// empty means sMAPE.
func BuildInput(summary metrics.Summary, metric string) (*DecisionInput, error) {
	if metric == "" {
		metric = domain.MetricSMAPE
	}

	input := &DecisionInput{
		Entities:        summary.Entities,
		BaselineSMAPE:   summary.SMAPEBaseline,
		CandidateSMAPE:  summary.SMAPECandidate,
		BaselineMAPE:    summary.MAPEBaseline,
		CandidateMAPE:   summary.MAPECandidate,
		BaselineScored:  summary.BaselineScored,
		CandidateScored: summary.CandidateScored,
		Metric:          metric,
		CandidateWins:   summary.CandidateWins,
		WinRate:         summary.WinRate,
		Tolerance:       metrics.AcceptanceTolerance,
	}

	// fail fast
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}
