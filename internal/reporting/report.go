package reporting

import (
	"time"

	"menu-forecast/internal/decision"
	"menu-forecast/internal/domain"
	"menu-forecast/internal/metrics"
	"menu-forecast/internal/normalization"
)

// Report represents one pipeline run for rendering.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	RunID        string
	DryRun       bool
	BaselineTag  string
	CandidateTag string
	Metric       string
	Horizon      []time.Time

	// Run counters
	Counters RunCounters

	// Corpus metrics and acceptance
	Summary  metrics.Summary
	Decision *decision.DecisionResult

	// Per-entity rows, sorted by entity id
	Backtests  []*domain.BacktestResult
	Selections []domain.Selection
	Forecasts  []*domain.Forecast

	// Data quality of the input series
	Validation *normalization.ValidationReport

	Errors []string
}

// RunCounters mirrors the batch summary printed at the end of a run.
type RunCounters struct {
	Processed     int
	Generated     int
	Saved         int
	SavedRows     int
	ShortHistory  int
	CandidateLost int
	CandidateWon  int
	Failed        int
}

// selectedModels indexes selections by entity.
func (r *Report) selectedModels() map[int64]string {
	out := make(map[int64]string, len(r.Selections))
	for _, s := range r.Selections {
		out[s.EntityID] = s.ModelTag
	}
	return out
}
