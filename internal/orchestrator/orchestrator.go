// Package orchestrator runs the batch forecasting pipeline.
// It coordinates: series building → per-entity backtest → selection → live forecast → upsert
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"menu-forecast/internal/backtest"
	"menu-forecast/internal/decision"
	"menu-forecast/internal/domain"
	"menu-forecast/internal/forecaster"
	"menu-forecast/internal/logging"
	"menu-forecast/internal/metrics"
	"menu-forecast/internal/normalization"
	"menu-forecast/internal/observability"
	"menu-forecast/internal/storage"
)

// DefaultHorizonDays is the live forecast length.
const DefaultHorizonDays = 7

// Configuration errors.
var (
	ErrNoSource     = errors.New("orchestrator: observation source is required")
	ErrNoForecaster = errors.New("orchestrator: baseline and candidate are required")
)

// Options for creating Orchestrator.
type Options struct {
	// Required
	Source    storage.ObservationSource
	Baseline  forecaster.Forecaster
	Candidate forecaster.Forecaster

	// Store receives the selected forecasts. Nil means dry run.
	Store     storage.ForecastStore
	StoreName string // database label for query metrics

	// Builder turns observations into series. Nil: no holidays.
	Builder *normalization.Builder

	EvalWeeks       int
	HorizonDays     int
	SelectionMetric string
	Workers         int           // parallel entities, default 1
	EntityTimeout   time.Duration // per-entity fit budget, 0 = none

	// Series range; nil bounds are inferred from the data
	Start *time.Time
	End   *time.Time

	// OnlyEntity restricts processing to one entity id.
	OnlyEntity *int64

	Logger  *zerolog.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Orchestrator coordinates the pipeline execution.
type Orchestrator struct {
	source    storage.ObservationSource
	store     storage.ForecastStore
	storeName string
	builder   *normalization.Builder
	baseline  forecaster.Forecaster
	candidate forecaster.Forecaster
	runner    *backtest.Runner
	selector  *decision.Selector

	horizonDays   int
	workers       int
	entityTimeout time.Duration
	start, end    *time.Time
	onlyEntity    *int64

	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		source:        opts.Source,
		store:         opts.Store,
		storeName:     opts.StoreName,
		builder:       opts.Builder,
		baseline:      opts.Baseline,
		candidate:     opts.Candidate,
		runner:        backtest.NewRunner(opts.EvalWeeks),
		selector:      decision.NewSelector(opts.SelectionMetric),
		horizonDays:   opts.HorizonDays,
		workers:       opts.Workers,
		entityTimeout: opts.EntityTimeout,
		start:         opts.Start,
		end:           opts.End,
		onlyEntity:    opts.OnlyEntity,
		log:           logging.OrNop(opts.Logger),
		metrics:       opts.Metrics,
		now:           opts.Now,
	}
	if o.builder == nil {
		o.builder = normalization.NewBuilder(nil)
	}
	if o.horizonDays <= 0 {
		o.horizonDays = DefaultHorizonDays
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.storeName == "" {
		o.storeName = "store"
	}
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID     string
	TrainedAt time.Time
	DryRun    bool
	Horizon   []time.Time

	Series     []*domain.Series
	Backtests  []*domain.BacktestResult
	Selections []domain.Selection
	Forecasts  []*domain.Forecast // selected rows, in entity order

	Summary metrics.Summary

	Processed     int // entities attempted
	Generated     int // entities with a complete live forecast
	Saved         int // entities written to the store
	SavedRows     int
	ShortHistory  int // candidate undefined, baseline used
	CandidateLost int
	CandidateWon  int
	Failed        int

	Errors []string
}

// entityOutcome is the per-entity result slot filled by one worker.
type entityOutcome struct {
	backtest  *domain.BacktestResult
	selection domain.Selection
	forecasts []*domain.Forecast
	saved     bool
	err       error
}

// Run executes the full pipeline.
// Phases:
//  1. Load observations and build dense series
//  2. Backtest, select and forecast each entity
//  3. Summarize the corpus
//
// Load failures abort the run. Per-entity failures are collected in
// RunResult.Errors; a storage failure is also returned as the run error.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if o.source == nil {
		return nil, ErrNoSource
	}
	if o.baseline == nil || o.candidate == nil {
		return nil, ErrNoForecaster
	}

	trainedAt := o.now().UTC().Truncate(time.Millisecond)
	result := &RunResult{
		RunID:     uuid.NewString(),
		TrainedAt: trainedAt,
		DryRun:    o.store == nil,
	}
	log := o.log.With().Str("run_id", result.RunID).Logger()

	// Phase 1: Load series
	log.Info().Msg("loading series")
	phaseStart := time.Now()
	series, err := normalization.NewRunner(o.source, o.builder).LoadSeries(ctx, o.start, o.end)
	if err != nil {
		o.metrics.RecordPipelineRun("load", "error", time.Since(phaseStart))
		return nil, fmt.Errorf("load series: %w", err)
	}
	o.metrics.RecordPipelineRun("load", "ok", time.Since(phaseStart))

	// horizon follows the latest date across all entities
	last := series[0].End()
	result.Horizon = domain.DateRange(domain.AddDays(last, 1), domain.AddDays(last, 1+o.horizonDays))
	series = o.filter(series)
	result.Series = series
	log.Info().
		Int("entities", len(series)).
		Str("last_date", domain.FormatDate(last)).
		Int("horizon_days", o.horizonDays).
		Bool("dry_run", result.DryRun).
		Msg("series loaded")

	// Phase 2: Per-entity processing
	phaseStart = time.Now()
	outcomes := make([]entityOutcome, len(series))
	agg := metrics.NewAggregator(o.selector.Metric())

	// plain Group: one entity failing must not cancel the others
	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i, s := range series {
		g.Go(func() error {
			out := o.processEntity(ctx, log, s, result.Horizon, trainedAt)
			outcomes[i] = out
			agg.Add(out.backtest)
			if out.err != nil && errors.Is(out.err, errStore) {
				return out.err
			}
			return nil
		})
	}
	runErr := g.Wait()

	status := "ok"
	if runErr != nil {
		status = "error"
	}
	o.metrics.RecordPipelineRun("entities", status, time.Since(phaseStart))

	// Phase 3: Collect and summarize
	for i := range outcomes {
		o.collect(result, &outcomes[i])
	}
	result.Processed = len(series)
	result.Summary = agg.Summary()
	o.metrics.RecordCorpus(result.Summary.SMAPEBaseline, result.Summary.SMAPECandidate)

	log.Info().
		Int("processed", result.Processed).
		Int("saved", result.Saved).
		Int("skipped_short", result.ShortHistory).
		Int("candidate_lost", result.CandidateLost).
		Int("failed", result.Failed).
		Float64("win_rate", result.Summary.WinRate).
		Float64("smape_baseline", result.Summary.SMAPEBaseline).
		Float64("smape_candidate", result.Summary.SMAPECandidate).
		Msg("summary")

	if runErr != nil {
		return result, fmt.Errorf("pipeline: %w", runErr)
	}
	o.metrics.RecordSuccess(o.now())
	return result, nil
}

// errStore marks per-entity failures that must fail the run.
var errStore = errors.New("storage failure")

// processEntity runs backtest, selection and the live forecast for one entity.
func (o *Orchestrator) processEntity(ctx context.Context, log zerolog.Logger, s *domain.Series, horizon []time.Time, trainedAt time.Time) entityOutcome {
	var out entityOutcome
	log = log.With().Int64("entity_id", s.EntityID).Logger()
	started := time.Now()

	fitCtx := ctx
	if o.entityTimeout > 0 {
		var cancel context.CancelFunc
		fitCtx, cancel = context.WithTimeout(ctx, o.entityTimeout)
		defer cancel()
	}

	bt, err := o.runner.Run(fitCtx, s, o.baseline, o.candidate)
	if err != nil {
		out.err = fmt.Errorf("entity %d: backtest: %w", s.EntityID, err)
		o.fail(log, out.err, started)
		return out
	}
	out.backtest = bt
	log.Debug().
		Int("points", bt.Points).
		Float64("smape_baseline", bt.Baseline.SMAPE).
		Float64("smape_candidate", bt.Candidate.SMAPE).
		Msg("backtest")

	sel := o.selector.Select(bt)
	chosen := o.baseline
	if sel.Source == domain.SourceCandidate {
		chosen = o.candidate
	}

	preds, err := chosen.FitPredict(fitCtx, s, horizon)
	if err != nil {
		out.err = fmt.Errorf("entity %d: forecast %s: %w", s.EntityID, chosen.Name(), err)
		o.fail(log, out.err, started)
		return out
	}
	if sel.Source == domain.SourceCandidate && !domain.AllDefined(preds) {
		sel = decision.Fallback(bt)
		log.Warn().Str("model", o.candidate.Name()).Str("reason", sel.Reason).Msg("candidate has no live forecast, using baseline")
		preds, err = o.baseline.FitPredict(fitCtx, s, horizon)
		if err != nil {
			out.err = fmt.Errorf("entity %d: forecast %s: %w", s.EntityID, o.baseline.Name(), err)
			o.fail(log, out.err, started)
			return out
		}
	}
	out.selection = sel

	switch sel.Reason {
	case domain.ReasonCandidateUndefined, domain.ReasonCandidateNoOutput:
		log.Info().Str("model", sel.ModelTag).Str("reason", sel.Reason).Int("history", s.Len()).Msg("skip-short")
	case domain.ReasonCandidateLost:
		log.Info().
			Str("model", sel.ModelTag).
			Str("reason", sel.Reason).
			Float64("smape_baseline", bt.Baseline.SMAPE).
			Float64("smape_candidate", bt.Candidate.SMAPE).
			Msg("candidate-lost")
	}

	if !domain.AllDefined(preds) {
		out.err = fmt.Errorf("entity %d: %s forecast has missing values", s.EntityID, sel.ModelTag)
		log.Warn().Str("model", sel.ModelTag).Msg("forecast has missing values, skipping")
		o.metrics.RecordEntity(observability.OutcomeFailed, "", 0)
		return out
	}
	out.forecasts = domain.ForecastsFromPredictions(s.EntityID, sel.ModelTag, trainedAt, preds)
	o.metrics.RecordEntity(outcomeLabel(sel), sel.ModelTag, time.Since(started))

	if o.store == nil {
		return out
	}

	writeStart := time.Now()
	err = o.store.UpsertBulk(ctx, out.forecasts)
	o.metrics.RecordDBQuery(o.storeName, "upsert_forecasts", time.Since(writeStart), err)
	if err != nil {
		out.err = fmt.Errorf("entity %d: %w: %w", s.EntityID, errStore, err)
		log.Error().Err(err).Msg("upsert failed")
		return out
	}
	out.saved = true
	o.metrics.RecordSaved(len(out.forecasts))
	log.Info().
		Str("model", sel.ModelTag).
		Str("reason", sel.Reason).
		Int("rows", len(out.forecasts)).
		Float64("smape_baseline", bt.Baseline.SMAPE).
		Float64("smape_candidate", bt.Candidate.SMAPE).
		Msg("saved")
	return out
}

func (o *Orchestrator) fail(log zerolog.Logger, err error, started time.Time) {
	log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("entity failed")
	o.metrics.RecordEntity(observability.OutcomeFailed, "", 0)
}

// collect folds one entity outcome into the run counters.
func (o *Orchestrator) collect(result *RunResult, out *entityOutcome) {
	if out.backtest != nil {
		result.Backtests = append(result.Backtests, out.backtest)
	}
	if out.err != nil {
		result.Failed++
		result.Errors = append(result.Errors, out.err.Error())
	}
	if out.backtest == nil || out.selection.ModelTag == "" {
		return
	}

	result.Selections = append(result.Selections, out.selection)
	switch out.selection.Reason {
	case domain.ReasonCandidateUndefined, domain.ReasonCandidateNoOutput:
		result.ShortHistory++
	case domain.ReasonCandidateLost:
		result.CandidateLost++
	case domain.ReasonCandidateWon:
		result.CandidateWon++
	}

	if len(out.forecasts) > 0 {
		result.Generated++
		result.Forecasts = append(result.Forecasts, out.forecasts...)
	}
	if out.saved {
		result.Saved++
		result.SavedRows += len(out.forecasts)
	}
}

// filter applies the OnlyEntity restriction.
func (o *Orchestrator) filter(series []*domain.Series) []*domain.Series {
	if o.onlyEntity == nil {
		return series
	}
	for _, s := range series {
		if s.EntityID == *o.onlyEntity {
			return []*domain.Series{s}
		}
	}
	return nil
}

func outcomeLabel(sel domain.Selection) string {
	switch {
	case sel.Source == domain.SourceCandidate:
		return observability.OutcomeCandidate
	case sel.Reason == domain.ReasonCandidateLost:
		return observability.OutcomeBaseline
	default:
		return observability.OutcomeShortHistory
	}
}
