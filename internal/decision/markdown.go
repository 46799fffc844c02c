package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders DecisionResult as Markdown string.
func RenderMarkdown(result *DecisionResult) string {
	var sb strings.Builder

	sb.WriteString("# Acceptance Report\n\n")
	sb.WriteString(fmt.Sprintf("## Decision: %s\n\n", result.Decision))

	// Criteria table
	sb.WriteString("## Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	for i, c := range result.Criteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	passed := 0
	for _, c := range result.Criteria {
		if c.Pass {
			passed++
		}
	}
	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n\n", passed, len(result.Criteria)))

	// Per-entity outcome
	in := result.Input
	sb.WriteString("## Selection\n\n")
	sb.WriteString(fmt.Sprintf("- Metric: %s\n", in.Metric))
	sb.WriteString(fmt.Sprintf("- Candidate wins: %d/%d\n", in.CandidateWins, in.CandidateScored))
	sb.WriteString(fmt.Sprintf("- Win rate: %.1f%%\n\n", in.WinRate*100))

	sb.WriteString("## Summary\n\n")
	if result.Decision == DecisionPass {
		sb.WriteString(fmt.Sprintf("The candidate is not worse than the baseline on corpus %s.\n", in.Metric))
	} else {
		sb.WriteString("Decision is FAIL due to:\n")
		for _, c := range result.Criteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	}

	return sb.String()
}
