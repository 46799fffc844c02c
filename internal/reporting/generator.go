package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"menu-forecast/internal/decision"
	"menu-forecast/internal/domain"
	"menu-forecast/internal/normalization"
	"menu-forecast/internal/orchestrator"
)

// Output file names.
const (
	AcceptanceFile = "acceptance.md"
	BacktestFile   = "backtest_metrics.csv"
	ForecastFile   = "forecasts.csv"
	MarkdownFile   = "report.md"
	SeriesFile     = "series.csv"
	ValidationFile = "series_validation.md"
)

// Generator produces reports from pipeline runs.
type Generator struct {
	metric string
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. metric names the selection
// metric used by the run; empty means sMAPE.
func NewGenerator(metric string) *Generator {
	if metric == "" {
		metric = domain.MetricSMAPE
	}
	return &Generator{
		metric: metric,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report from a finished run, including the acceptance decision.
func (g *Generator) Generate(run *orchestrator.RunResult) (*Report, error) {
	if run == nil {
		return nil, decision.ErrNilInput
	}

	input, err := decision.BuildInput(run.Summary, g.metric)
	if err != nil {
		return nil, fmt.Errorf("build decision input: %w", err)
	}
	result, err := decision.NewEvaluator().Evaluate(*input)
	if err != nil {
		return nil, fmt.Errorf("evaluate acceptance: %w", err)
	}

	r := &Report{
		GeneratedAt: g.now(),
		RunID:       run.RunID,
		DryRun:      run.DryRun,
		Metric:      g.metric,
		Horizon:     run.Horizon,
		Counters: RunCounters{
			Processed:     run.Processed,
			Generated:     run.Generated,
			Saved:         run.Saved,
			SavedRows:     run.SavedRows,
			ShortHistory:  run.ShortHistory,
			CandidateLost: run.CandidateLost,
			CandidateWon:  run.CandidateWon,
			Failed:        run.Failed,
		},
		Summary:    run.Summary,
		Decision:   result,
		Backtests:  run.Backtests,
		Selections: run.Selections,
		Forecasts:  run.Forecasts,
		Errors:     run.Errors,
	}
	if len(run.Backtests) > 0 {
		r.BaselineTag = run.Backtests[0].BaselineTag
		r.CandidateTag = run.Backtests[0].CandidateTag
	}
	if len(run.Series) > 0 {
		r.Validation = normalization.Validate(run.Series)
	}
	return r, nil
}

// Write renders the backtest CSV, the forecast CSV and the markdown report into dir,
// plus the acceptance report when a decision was made.
func (g *Generator) Write(dir string, r *Report) error {
	files := map[string]string{
		BacktestFile: RenderBacktestCSV(r.Backtests, r.Selections),
		ForecastFile: RenderForecastCSV(r.Forecasts),
		MarkdownFile: RenderMarkdown(r),
	}
	if r.Decision != nil {
		files[AcceptanceFile] = decision.RenderMarkdown(r.Decision)
	}
	return writeFiles(dir, files)
}

// WriteSeries renders the dense series CSV and its validation report into dir.
func (g *Generator) WriteSeries(dir string, series []*domain.Series) (*normalization.ValidationReport, error) {
	v := normalization.Validate(series)
	err := writeFiles(dir, map[string]string{
		SeriesFile:     RenderSeriesCSV(series),
		ValidationFile: RenderValidation(v, g.now()),
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// RenderValidation renders the series acceptance checks as Markdown.
func RenderValidation(v *normalization.ValidationReport, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Series Validation\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Series: %d entities x %d days\n\n", v.Entities, v.Days))
	sb.WriteString("| Check | Threshold | Actual | Status |\n")
	sb.WriteString("|-------|-----------|--------|--------|\n")
	for _, c := range v.Checks {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, passFail(c.Pass)))
	}
	sb.WriteString("\n")

	if v.AllPass {
		sb.WriteString("**All checks passed.**\n")
	} else {
		sb.WriteString("**Some checks failed.**\n\n")
		for _, e := range v.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
	}

	return sb.String()
}

func writeFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
