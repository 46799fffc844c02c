package forecaster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"menu-forecast/internal/domain"
)

// Factory errors
var (
	ErrUnknownModel    = errors.New("unknown model")
	ErrInvalidKWeeks   = errors.New("seasonal baseline requires k >= 1")
	ErrInvalidAlpha    = errors.New("regression requires alpha > 0")
	ErrInvalidInterval = errors.New("interval z must be >= 0")
)

// Baseline names accepted in configuration.
const (
	BaselineNaive    = "naive"
	BaselineSeasonal = "seasonal_ma"
)

// Config selects and parameterizes the baseline and candidate forecasters.
type Config struct {
	Baseline   string // naive | naive_tminus7 | seasonal_ma | seasonal_ma_k{k}
	Candidate  string // ridge | lasso | decomposition
	KWeeks     int
	MinHistory int
	RidgeAlpha float64
	LassoAlpha float64
	IntervalZ  float64
}

// FromConfig creates the baseline and candidate pair.
// The calendar supplies holiday flags for future dates.
func FromConfig(cfg Config, calendar *domain.Calendar) (baseline, candidate Forecaster, err error) {
	baseline, err = NewBaseline(cfg)
	if err != nil {
		return nil, nil, err
	}
	candidate, err = NewCandidate(cfg, calendar)
	if err != nil {
		return nil, nil, err
	}
	return baseline, candidate, nil
}

// NewBaseline creates the configured baseline.
// A "seasonal_ma_k{k}" name overrides cfg.KWeeks.
func NewBaseline(cfg Config) (Forecaster, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Baseline))
	switch {
	case name == BaselineNaive || name == domain.ModelTagNaive:
		return NewNaiveForecaster(), nil
	case name == BaselineSeasonal || name == "":
		return fromSeasonalConfig(cfg.KWeeks)
	case strings.HasPrefix(name, BaselineSeasonal+"_k"):
		k, err := strconv.Atoi(strings.TrimPrefix(name, BaselineSeasonal+"_k"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModel, cfg.Baseline)
		}
		if k < 1 {
			return nil, ErrInvalidKWeeks
		}
		return fromSeasonalConfig(k)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, cfg.Baseline)
	}
}

// NewCandidate creates the configured candidate model.
func NewCandidate(cfg Config, calendar *domain.Calendar) (Forecaster, error) {
	if cfg.IntervalZ < 0 {
		return nil, ErrInvalidInterval
	}
	opts := RegressionOptions{MinHistory: cfg.MinHistory, IntervalZ: cfg.IntervalZ}

	switch strings.ToLower(strings.TrimSpace(cfg.Candidate)) {
	case domain.ModelTagRidge, "":
		if cfg.RidgeAlpha < 0 {
			return nil, ErrInvalidAlpha
		}
		opts.Alpha = cfg.RidgeAlpha
		return NewRidge(opts, calendar), nil
	case domain.ModelTagLasso:
		if cfg.LassoAlpha < 0 {
			return nil, ErrInvalidAlpha
		}
		opts.Alpha = cfg.LassoAlpha
		return NewLasso(opts, calendar), nil
	case domain.ModelTagDecomposition:
		return NewDecomposition(cfg.MinHistory, cfg.IntervalZ, calendar), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, cfg.Candidate)
	}
}

// fromSeasonalConfig validates k; zero means the default depth.
func fromSeasonalConfig(k int) (*SeasonalForecaster, error) {
	if k < 0 {
		return nil, ErrInvalidKWeeks
	}
	return NewSeasonalForecaster(k), nil
}
