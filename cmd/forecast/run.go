package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"menu-forecast/internal/config"
	"menu-forecast/internal/forecaster"
	"menu-forecast/internal/normalization"
	"menu-forecast/internal/observability"
	"menu-forecast/internal/orchestrator"
	"menu-forecast/internal/reporting"
)

func newRunCmd(f *rootFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Backtest, select and save the live forecast for every menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, f, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute everything but skip the forecast upsert")
	return cmd
}

func newBacktestCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Run the backtest and write the report without saving forecasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, f, true)
		},
	}
}

func newSeriesCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "Export the dense daily series and its validation report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exportSeries(cmd, f)
		},
	}
}

func runPipeline(cmd *cobra.Command, f *rootFlags, dryRun bool) error {
	ctx := cmd.Context()
	cfg, log, err := f.load(cmd)
	if err != nil {
		return err
	}
	only, err := f.entity()
	if err != nil {
		return err
	}

	cal, err := normalization.LoadCalendar(cfg.Series.HolidaysFile)
	if err != nil {
		return err
	}
	baseline, candidate, err := forecaster.FromConfig(cfg.ForecasterConfig(), cal)
	if err != nil {
		return err
	}
	start, end, err := cfg.Range()
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg, observability.DefaultNamespace)

	opts := orchestrator.Options{
		Source:          be.source,
		Store:           be.store,
		StoreName:       be.name,
		Baseline:        baseline,
		Candidate:       candidate,
		Builder:         normalization.NewBuilder(cal),
		EvalWeeks:       cfg.Forecast.EvalWeeks,
		HorizonDays:     cfg.Forecast.HorizonDays,
		SelectionMetric: cfg.Forecast.SelectionMetric,
		Workers:         cfg.Forecast.Workers,
		EntityTimeout:   cfg.Forecast.EntityTimeout,
		Start:           start,
		End:             end,
		OnlyEntity:      only,
		Logger:          &log,
		Metrics:         m,
	}
	if dryRun {
		opts.Store = nil
	}

	result, runErr := orchestrator.New(opts).Run(ctx)
	defer pushMetrics(ctx, cfg, reg, log)
	if result == nil {
		return runErr
	}

	gen := reporting.NewGenerator(cfg.Forecast.SelectionMetric)
	report, err := gen.Generate(result)
	if err != nil {
		return err
	}
	if err := gen.Write(cfg.Report.OutputDir, report); err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), cfg, result, report)

	if runErr != nil {
		return runErr
	}
	if result.Generated == 0 {
		return errNoForecasts
	}
	return nil
}

func exportSeries(cmd *cobra.Command, f *rootFlags) error {
	ctx := cmd.Context()
	cfg, log, err := f.load(cmd)
	if err != nil {
		return err
	}
	cal, err := normalization.LoadCalendar(cfg.Series.HolidaysFile)
	if err != nil {
		return err
	}
	start, end, err := cfg.Range()
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	series, err := normalization.NewRunner(be.source, normalization.NewBuilder(cal)).LoadSeries(ctx, start, end)
	if err != nil {
		return err
	}
	v, err := reporting.NewGenerator(cfg.Forecast.SelectionMetric).WriteSeries(cfg.Report.OutputDir, series)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Series: %d entities x %d days\n", v.Entities, v.Days)
	fmt.Fprintf(out, "  - %s\n", filepath.Join(cfg.Report.OutputDir, reporting.SeriesFile))
	fmt.Fprintf(out, "  - %s\n", filepath.Join(cfg.Report.OutputDir, reporting.ValidationFile))
	if !v.AllPass {
		return fmt.Errorf("series validation failed: %d errors", len(v.Errors))
	}
	return nil
}

func pushMetrics(ctx context.Context, cfg *config.Config, g prometheus.Gatherer, log zerolog.Logger) {
	if cfg.Metrics.PushURL == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := observability.Push(pushCtx, cfg.Metrics.PushURL, cfg.Metrics.Job, g); err != nil {
		log.Warn().Err(err).Str("url", cfg.Metrics.PushURL).Msg("push metrics failed")
	}
}

func printSummary(w io.Writer, cfg *config.Config, r *orchestrator.RunResult, rep *reporting.Report) {
	mode := "save"
	if r.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(w, "=== Summary (%s) ===\n", mode)
	fmt.Fprintf(w, "Menus processed      : %d\n", r.Processed)
	fmt.Fprintf(w, "Saved                : %d\n", r.Saved)
	fmt.Fprintf(w, "Skipped (short hist) : %d\n", r.ShortHistory)
	fmt.Fprintf(w, "ML lost -> baseline  : %d\n", r.CandidateLost)
	fmt.Fprintf(w, "Failed               : %d\n", r.Failed)
	fmt.Fprintf(w, "Decision             : %s\n", rep.Decision.Decision)
	for _, name := range []string{reporting.BacktestFile, reporting.ForecastFile, reporting.MarkdownFile} {
		fmt.Fprintf(w, "  - %s\n", filepath.Join(cfg.Report.OutputDir, name))
	}
}
