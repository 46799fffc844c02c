package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"menu-forecast/internal/config"
	"menu-forecast/internal/normalization"
	"menu-forecast/internal/reporting"
)

// writeFixture writes days of weekly-patterned sales for each entity.
func writeFixture(t *testing.T, dir string, days int, ids ...int64) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("menu_id,ds,y\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range ids {
		for i := 0; i < days; i++ {
			d := start.AddDate(0, 0, i)
			fmt.Fprintf(&sb, "%d,%s,%d\n", id, d.Format("2006-01-02"), int(id)*10+i%7)
		}
	}
	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func writeTestConfig(t *testing.T, dir, fixture string) string {
	t.Helper()
	body := fmt.Sprintf("storage:\n  backend: memory\n  fixture: %q\nreport:\n  output_dir: %q\nlogging:\n  level: info\n",
		fixture, filepath.Join(dir, "reports"))
	path := filepath.Join(dir, "forecast.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvStorage, "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, writeFixture(t, dir, 70, 1, 2))

	stdout, stderr, err := execute(t, "run", "--config", cfgPath)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}

	for _, want := range []string{"=== Summary (save) ===", "Menus processed      : 2", "Saved                : 2"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, `"message":"summary"`) {
		t.Errorf("expected JSON summary log, got:\n%s", stderr)
	}

	for _, name := range []string{reporting.BacktestFile, reporting.ForecastFile, reporting.MarkdownFile} {
		if _, err := os.Stat(filepath.Join(dir, "reports", name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "reports", reporting.ForecastFile))
	if err != nil {
		t.Fatalf("read forecasts: %v", err)
	}
	// header plus 7 days for each of 2 menus
	if lines := strings.Count(string(data), "\n"); lines != 15 {
		t.Errorf("expected 15 forecast lines, got %d", lines)
	}
}

func TestBacktestCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, writeFixture(t, dir, 70, 1))

	stdout, _, err := execute(t, "backtest", "--config", cfgPath, "--output-dir", filepath.Join(dir, "bt"))
	if err != nil {
		t.Fatalf("backtest failed: %v", err)
	}
	if !strings.Contains(stdout, "=== Summary (dry-run) ===") || !strings.Contains(stdout, "Saved                : 0") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "bt", reporting.MarkdownFile)); err != nil {
		t.Errorf("expected report in --output-dir: %v", err)
	}
}

func TestRunCommand_OnlyEntity(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, writeFixture(t, dir, 70, 1, 2, 3))

	stdout, _, err := execute(t, "run", "--config", cfgPath, "--only-entity", "2", "--dry-run")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout, "Menus processed      : 1") {
		t.Errorf("expected a single entity:\n%s", stdout)
	}

	if _, _, err := execute(t, "run", "--config", cfgPath, "--only-entity", "two"); err == nil {
		t.Error("expected error for non-numeric entity id")
	}
}

func TestRunCommand_NoForecasts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, writeFixture(t, dir, 70, 1))

	_, _, err := execute(t, "run", "--config", cfgPath, "--only-entity", "99")
	if !errors.Is(err, errNoForecasts) {
		t.Errorf("expected errNoForecasts, got %v", err)
	}
}

func TestRunCommand_EmptyFixture(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(fixture, []byte("menu_id,ds,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := execute(t, "run", "--config", writeTestConfig(t, dir, fixture))
	if !errors.Is(err, normalization.ErrEmptySource) {
		t.Errorf("expected ErrEmptySource, got %v", err)
	}
}

func TestSeriesCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, writeFixture(t, dir, 21, 4))

	stdout, _, err := execute(t, "series", "--config", cfgPath)
	if err != nil {
		t.Fatalf("series failed: %v", err)
	}
	if !strings.Contains(stdout, "Series: 1 entities x 21 days") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	data, err := os.ReadFile(filepath.Join(dir, "reports", reporting.SeriesFile))
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	if !strings.HasPrefix(string(data), "entity_id,ds,y,dow,is_month_end,is_holiday\n4,2024-01-01,40,0,0,0\n") {
		t.Errorf("unexpected series CSV:\n%s", data)
	}
}

func TestMissingConfig(t *testing.T) {
	if _, _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
