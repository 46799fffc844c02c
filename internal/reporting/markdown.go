package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"menu-forecast/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Forecast Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	}
	mode := "save"
	if r.DryRun {
		mode = "dry run"
	}
	sb.WriteString(fmt.Sprintf("Mode: %s | Baseline: %s | Candidate: %s | Metric: %s\n\n",
		mode, orNA(r.BaselineTag), orNA(r.CandidateTag), orNA(r.Metric)))
	if n := len(r.Horizon); n > 0 {
		sb.WriteString(fmt.Sprintf("Horizon: %s .. %s (%d days)\n\n",
			domain.FormatDate(r.Horizon[0]), domain.FormatDate(r.Horizon[n-1]), n))
	}

	// Run summary
	c := r.Counters
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Menus processed | %d |\n", c.Processed))
	sb.WriteString(fmt.Sprintf("| Saved forecasts | %d |\n", c.Saved))
	sb.WriteString(fmt.Sprintf("| Forecast rows | %d |\n", c.SavedRows))
	sb.WriteString(fmt.Sprintf("| Skipped (short hist) | %d |\n", c.ShortHistory))
	sb.WriteString(fmt.Sprintf("| ML lost -> baseline | %d |\n", c.CandidateLost))
	sb.WriteString(fmt.Sprintf("| ML won | %d |\n", c.CandidateWon))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", c.Failed))
	sb.WriteString(fmt.Sprintf("| ML win rate | %.1f%% |\n", r.Summary.WinRate*100))
	sb.WriteString("\n")

	// Corpus metrics
	s := r.Summary
	sb.WriteString("## Corpus Metrics\n\n")
	sb.WriteString(fmt.Sprintf("Equal-weight means over %d entities (baseline scored: %d, candidate scored: %d).\n\n",
		s.Entities, s.BaselineScored, s.CandidateScored))
	sb.WriteString("| Metric | Baseline | Candidate |\n")
	sb.WriteString("|--------|----------|-----------|\n")
	sb.WriteString(fmt.Sprintf("| MAPE | %s | %s |\n", formatCell(s.MAPEBaseline), formatCell(s.MAPECandidate)))
	sb.WriteString(fmt.Sprintf("| sMAPE | %s | %s |\n", formatCell(s.SMAPEBaseline), formatCell(s.SMAPECandidate)))
	sb.WriteString("\n")

	// Acceptance
	sb.WriteString("## Acceptance\n\n")
	if r.Decision != nil {
		sb.WriteString(fmt.Sprintf("Decision: **%s**\n\n", r.Decision.Decision))
		sb.WriteString("| Criterion | Threshold | Actual | Status |\n")
		sb.WriteString("|-----------|-----------|--------|--------|\n")
		for _, cr := range r.Decision.Criteria {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				cr.Name, cr.Threshold, cr.Actual, passFail(cr.Pass)))
		}
	} else {
		sb.WriteString("No acceptance decision available.\n")
	}
	sb.WriteString("\n")

	// Per-entity backtests
	sb.WriteString("## Backtest\n\n")
	if len(r.Backtests) > 0 {
		selected := r.selectedModels()
		sb.WriteString("| Entity | Points | MAPE base | sMAPE base | MAPE cand | sMAPE cand | Selected |\n")
		sb.WriteString("|--------|--------|-----------|------------|-----------|------------|----------|\n")
		for _, b := range r.Backtests {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s | %s | %s | %s | %s |\n",
				b.EntityID, b.Points,
				formatCell(b.Baseline.MAPE), formatCell(b.Baseline.SMAPE),
				formatCell(b.Candidate.MAPE), formatCell(b.Candidate.SMAPE),
				orNA(selected[b.EntityID])))
		}
	} else {
		sb.WriteString("No backtest results available.\n")
	}
	sb.WriteString("\n")

	// Data quality
	if r.Validation != nil {
		sb.WriteString("## Data Quality\n\n")
		sb.WriteString(fmt.Sprintf("Series: %d entities x %d days\n\n", r.Validation.Entities, r.Validation.Days))
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.Validation.Checks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, passFail(check.Pass)))
		}
		sb.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
