package reporting

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"menu-forecast/internal/decision"
	"menu-forecast/internal/domain"
	"menu-forecast/internal/metrics"
	"menu-forecast/internal/orchestrator"
)

var (
	fixedTime  = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	fixedClock = func() time.Time { return fixedTime }
	day1       = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func testRun() *orchestrator.RunResult {
	backtests := []*domain.BacktestResult{
		{
			EntityID: 1, BaselineTag: "seasonal_ma_k4", CandidateTag: "ridge", Points: 14,
			Baseline:  domain.MetricPair{MAPE: 0.2, SMAPE: 0.25},
			Candidate: domain.MetricPair{MAPE: 0.1, SMAPE: 0.125},
		},
		{
			EntityID: 2, BaselineTag: "seasonal_ma_k4", CandidateTag: "ridge", Points: 0,
			Baseline:  domain.UndefinedMetrics(),
			Candidate: domain.UndefinedMetrics(),
		},
	}
	selections := []domain.Selection{
		{EntityID: 1, Source: domain.SourceCandidate, ModelTag: "ridge", Reason: domain.ReasonCandidateWon},
		{EntityID: 2, Source: domain.SourceBaseline, ModelTag: "seasonal_ma_k4", Reason: domain.ReasonCandidateUndefined},
	}
	cal := domain.NewCalendar([]time.Time{day1})
	series := []*domain.Series{{EntityID: 1, Points: []domain.SeriesPoint{cal.Point(day1.AddDate(0, 0, -1), 4), cal.Point(day1, 0)}}}

	return &orchestrator.RunResult{
		RunID:      "run-1",
		TrainedAt:  fixedTime,
		Horizon:    []time.Time{day1, day1.AddDate(0, 0, 1)},
		Series:     series,
		Backtests:  backtests,
		Selections: selections,
		Forecasts: []*domain.Forecast{
			{EntityID: 1, Date: day1, ModelTag: "ridge", Point: 3.5, Lower: 1.25, Upper: 5.75, TrainedAt: fixedTime},
		},
		Summary:      metrics.Summarize(backtests, domain.MetricSMAPE),
		Processed:    2,
		Generated:    2,
		Saved:        2,
		SavedRows:    14,
		ShortHistory: 1,
		CandidateWon: 1,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	var first string
	for run := 0; run < 5; run++ {
		report, err := NewGenerator("").WithClock(fixedClock).Generate(testRun())
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}
		md := RenderMarkdown(report)
		if first == "" {
			first = md
			continue
		}
		if md != first {
			t.Fatalf("Run %d: markdown differs between runs", run)
		}
	}
}

func TestGenerate_Decision(t *testing.T) {
	report, err := NewGenerator(domain.MetricSMAPE).WithClock(fixedClock).Generate(testRun())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Decision.Decision != decision.DecisionPass {
		t.Errorf("expected PASS, got %s", report.Decision.Decision)
	}
	if report.BaselineTag != "seasonal_ma_k4" || report.CandidateTag != "ridge" {
		t.Errorf("unexpected tags %s/%s", report.BaselineTag, report.CandidateTag)
	}
	if report.Validation == nil || !report.Validation.AllPass {
		t.Errorf("expected passing validation, got %+v", report.Validation)
	}
	if report.Counters.ShortHistory != 1 {
		t.Errorf("expected counters to be copied, got %+v", report.Counters)
	}
}

func TestGenerate_NilRun(t *testing.T) {
	if _, err := NewGenerator("").Generate(nil); err == nil {
		t.Error("expected error for nil run")
	}
}

func TestRenderBacktestCSV(t *testing.T) {
	run := testRun()
	got := RenderBacktestCSV(run.Backtests, run.Selections)

	want := "entity_id,mape_baseline,smape_baseline,mape_candidate,smape_candidate,selected_model\n" +
		"1,0.200000,0.250000,0.100000,0.125000,ridge\n" +
		"2,,,,,seasonal_ma_k4\n"
	if got != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderForecastCSV(t *testing.T) {
	got := RenderForecastCSV(testRun().Forecasts)

	want := "entity_id,ds,yhat,yhat_lo,yhat_hi,model,trained_at\n" +
		"1,2024-03-01,3.500000,1.250000,5.750000,ridge,2024-01-15T12:00:00Z\n"
	if got != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderSeriesCSV(t *testing.T) {
	got := RenderSeriesCSV(testRun().Series)

	// 2024-02-29 is a Thursday and the last day of February; 2024-03-01 is a listed holiday
	want := "entity_id,ds,y,dow,is_month_end,is_holiday\n" +
		"1,2024-02-29,4,3,1,0\n" +
		"1,2024-03-01,0,4,0,1\n"
	if got != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	report, err := NewGenerator("").WithClock(fixedClock).Generate(testRun())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Forecast Run Report",
		"Run: run-1",
		"Horizon: 2024-03-01 .. 2024-03-02 (2 days)",
		"| Menus processed | 2 |",
		"| Skipped (short hist) | 1 |",
		"| ML lost -> baseline | 0 |",
		"| ML win rate | 100.0% |",
		"| sMAPE | 0.2500 | 0.1250 |",
		"Decision: **PASS**",
		"| 2 | 0 | n/a | n/a | n/a | n/a | seasonal_ma_k4 |",
		"## Data Quality",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Errors") {
		t.Error("expected no errors section")
	}
}

func TestRenderMarkdown_UndefinedCorpusFails(t *testing.T) {
	run := testRun()
	run.Backtests = run.Backtests[1:]
	run.Summary = metrics.Summarize(run.Backtests, domain.MetricSMAPE)
	run.Errors = []string{"entity 3: backtest: boom"}

	report, err := NewGenerator("").WithClock(fixedClock).Generate(run)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Decision.Decision != decision.DecisionFail {
		t.Errorf("expected FAIL for undefined corpus, got %s", report.Decision.Decision)
	}
	if !math.IsNaN(report.Summary.SMAPEBaseline) {
		t.Errorf("expected NaN corpus baseline, got %v", report.Summary.SMAPEBaseline)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "| sMAPE | n/a | n/a |") {
		t.Error("expected n/a corpus metrics")
	}
	if !strings.Contains(md, "- entity 3: backtest: boom") {
		t.Error("expected errors section")
	}
}

func TestGenerator_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	g := NewGenerator("").WithClock(fixedClock)

	report, err := g.Generate(testRun())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := g.Write(dir, report); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, name := range []string{AcceptanceFile, BacktestFile, ForecastFile, MarkdownFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestGenerator_WriteSeries(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator("").WithClock(fixedClock)

	bad := []*domain.Series{{EntityID: 5, Points: []domain.SeriesPoint{
		{Date: day1, Quantity: -1, DayOfWeek: domain.Weekday(day1)},
	}}}
	v, err := g.WriteSeries(dir, bad)
	if err != nil {
		t.Fatalf("WriteSeries failed: %v", err)
	}
	if v.AllPass {
		t.Error("expected negative quantity to fail validation")
	}

	data, err := os.ReadFile(filepath.Join(dir, ValidationFile))
	if err != nil {
		t.Fatalf("read validation: %v", err)
	}
	if !strings.Contains(string(data), "**Some checks failed.**") {
		t.Errorf("unexpected validation report:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, SeriesFile)); err != nil {
		t.Errorf("expected series file: %v", err)
	}
}
