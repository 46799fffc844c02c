package forecaster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"menu-forecast/internal/domain"
)

// Regression defaults.
const (
	DefaultRidgeAlpha  = 1.0
	DefaultLassoAlpha  = 0.0005
	DefaultMinHistory  = 14
	DefaultLassoIter   = 10000
	DefaultLassoTol    = 1e-4
	ctxCheckEveryIters = 64
)

var errSingular = errors.New("normal equations are not positive definite")

// RegressionOptions configures a lag-feature regression.
type RegressionOptions struct {
	Alpha      float64 // penalty strength
	MinHistory int     // minimum training rows after dropping undefined lags
	IntervalZ  float64 // half-width multiplier on the residual std dev
	MaxIter    int     // lasso only
	Tol        float64 // lasso only
}

// LagRegression is a penalized linear model over lag-1..7 and calendar features.
// The intercept is fitted on centered data and is never penalized.
type LagRegression struct {
	family   string // domain.ModelTagRidge | domain.ModelTagLasso
	opts     RegressionOptions
	calendar *domain.Calendar
}

// NewRidge creates an L2-penalized lag regression.
func NewRidge(opts RegressionOptions, calendar *domain.Calendar) *LagRegression {
	if opts.Alpha <= 0 {
		opts.Alpha = DefaultRidgeAlpha
	}
	return newLagRegression(domain.ModelTagRidge, opts, calendar)
}

// NewLasso creates an L1-penalized lag regression solved by coordinate descent.
func NewLasso(opts RegressionOptions, calendar *domain.Calendar) *LagRegression {
	if opts.Alpha <= 0 {
		opts.Alpha = DefaultLassoAlpha
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultLassoIter
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultLassoTol
	}
	return newLagRegression(domain.ModelTagLasso, opts, calendar)
}

func newLagRegression(family string, opts RegressionOptions, calendar *domain.Calendar) *LagRegression {
	if opts.MinHistory <= 0 {
		opts.MinHistory = DefaultMinHistory
	}
	if calendar == nil {
		calendar = domain.NewCalendar(nil)
	}
	return &LagRegression{family: family, opts: opts, calendar: calendar}
}

// Name returns the model family tag.
func (r *LagRegression) Name() string {
	return r.family
}

// Fit is a fitted linear model.
type Fit struct {
	Intercept float64
	Coef      []float64 // one weight per feature, see FeatureNames
	Sigma     float64   // in-sample residual standard deviation
	Rows      int       // training rows used
}

// Predict evaluates the model on one feature row.
func (f *Fit) Predict(row []float64) float64 {
	return f.Intercept + floats.Dot(f.Coef, row)
}

// Fit trains on the series. Returns nil without error when fewer than
// MinHistory rows remain after dropping the undefined-lag prefix.
func (r *LagRegression) Fit(ctx context.Context, s *domain.Series) (*Fit, error) {
	x, y := BuildFeatures(s)
	if len(y) < r.opts.MinHistory {
		return nil, nil
	}

	cols, yc, xMean, yMean := center(x, y)

	var coef []float64
	var err error
	switch r.family {
	case domain.ModelTagRidge:
		coef, err = solveRidge(cols, yc, r.opts.Alpha)
	case domain.ModelTagLasso:
		coef, err = solveLasso(ctx, cols, yc, r.opts.Alpha, r.opts.MaxIter, r.opts.Tol)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownModel, r.family)
	}
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", r.family, err)
	}

	fit := &Fit{
		Intercept: yMean - floats.Dot(coef, xMean),
		Coef:      coef,
		Rows:      len(y),
	}

	resid := make([]float64, len(y))
	for i, row := range x {
		resid[i] = y[i] - fit.Predict(row)
	}
	fit.Sigma = residualStdDev(resid)

	return fit, nil
}

// FitPredict fits on history and walks forward day by day to the last
// requested date, feeding each prediction back as the next day's lag-1.
// Dates on or before history.End() are left undefined.
func (r *LagRegression) FitPredict(ctx context.Context, history *domain.Series, dates []time.Time) ([]domain.Prediction, error) {
	out := undefinedPredictions(dates)
	if len(dates) == 0 {
		return out, nil
	}

	fit, err := r.Fit(ctx, history)
	if err != nil {
		return nil, err
	}
	if fit == nil {
		return out, nil
	}

	walked, err := r.walk(ctx, fit, history, dates)
	if err != nil {
		return nil, err
	}

	for i, d := range dates {
		yhat, ok := walked[domain.Day(d)]
		if !ok {
			continue
		}
		out[i] = intervalPrediction(d, yhat, r.opts.IntervalZ*fit.Sigma)
	}
	return out, nil
}

// walk runs the autoregressive recursion from history.End()+1 to the latest date.
// The rolling buffer is owned by this call.
func (r *LagRegression) walk(ctx context.Context, fit *Fit, history *domain.Series, dates []time.Time) (map[time.Time]float64, error) {
	last := history.End()
	maxDate := last
	for _, d := range dates {
		if d := domain.Day(d); d.After(maxDate) {
			maxDate = d
		}
	}
	span := domain.DaysBetween(last, maxDate)
	if span <= 0 || history.Len() < NumLags {
		return nil, nil
	}

	values := history.Values()
	buf := make([]float64, 0, NumLags+span)
	buf = append(buf, values[len(values)-NumLags:]...)

	out := make(map[time.Time]float64, span)
	row := make([]float64, numFeatures)
	for step := 1; step <= span; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := domain.AddDays(last, step)
		fillRow(row, buf, d, r.calendar.IsHoliday(d))
		yhat := math.Max(0, fit.Predict(row))
		buf = append(buf, yhat)
		out[d] = yhat
	}
	return out, nil
}

// center returns centered feature columns, the centered target and the means.
func center(x [][]float64, y []float64) (cols [][]float64, yc []float64, xMean []float64, yMean float64) {
	n, p := len(x), len(x[0])
	cols = make([][]float64, p)
	xMean = make([]float64, p)
	for j := 0; j < p; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = x[i][j]
		}
		xMean[j] = stat.Mean(col, nil)
		floats.AddConst(-xMean[j], col)
		cols[j] = col
	}

	yMean = stat.Mean(y, nil)
	yc = make([]float64, n)
	copy(yc, y)
	floats.AddConst(-yMean, yc)
	return cols, yc, xMean, yMean
}

// solveRidge minimizes ||y - Xw||^2 + alpha*||w||^2 on centered data
// through the Cholesky factorization of X'X + alpha*I.
func solveRidge(cols [][]float64, y []float64, alpha float64) ([]float64, error) {
	n, p := len(y), len(cols)
	xd := mat.NewDense(n, p, nil)
	for j, col := range cols {
		xd.SetCol(j, col)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, xd.T())
	for j := 0; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+alpha)
	}

	var rhs mat.VecDense
	rhs.MulVec(xd.T(), mat.NewVecDense(n, y))

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errSingular
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return nil, fmt.Errorf("solve ridge system: %w", err)
	}

	out := make([]float64, p)
	for j := range out {
		out[j] = w.AtVec(j)
	}
	return out, nil
}

// solveLasso minimizes (1/2n)*||y - Xw||^2 + alpha*||w||_1 on centered data
// with cyclic coordinate descent. Stops when the largest coordinate update is
// below tol relative to the largest weight, or after maxIter sweeps.
func solveLasso(ctx context.Context, cols [][]float64, y []float64, alpha float64, maxIter int, tol float64) ([]float64, error) {
	n, p := float64(len(y)), len(cols)
	w := make([]float64, p)
	resid := make([]float64, len(y))
	copy(resid, y)

	norms := make([]float64, p)
	for j, col := range cols {
		norms[j] = floats.Dot(col, col) / n
	}

	for iter := 0; iter < maxIter; iter++ {
		if iter%ctxCheckEveryIters == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		maxDelta, maxW := 0.0, 0.0
		for j, col := range cols {
			if norms[j] == 0 {
				continue
			}
			rho := floats.Dot(col, resid)/n + norms[j]*w[j]
			next := softThreshold(rho, alpha) / norms[j]
			if delta := next - w[j]; delta != 0 {
				floats.AddScaled(resid, -delta, col)
				maxDelta = math.Max(maxDelta, math.Abs(delta))
				w[j] = next
			}
			maxW = math.Max(maxW, math.Abs(w[j]))
		}

		if maxW == 0 || maxDelta/maxW < tol {
			break
		}
	}
	return w, nil
}

func softThreshold(v, lambda float64) float64 {
	switch {
	case v > lambda:
		return v - lambda
	case v < -lambda:
		return v + lambda
	default:
		return 0
	}
}

// residualStdDev is the sample std dev of residuals, 0 for fewer than two.
func residualStdDev(resid []float64) float64 {
	if len(resid) < 2 {
		return 0
	}
	sd := stat.StdDev(resid, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// intervalPrediction clamps the point and lower bound at zero.
func intervalPrediction(date time.Time, point, halfWidth float64) domain.Prediction {
	point = math.Max(0, point)
	return domain.Prediction{
		Date:  domain.Day(date),
		Point: point,
		Lower: math.Max(0, point-halfWidth),
		Upper: point + halfWidth,
	}
}

func undefinedPredictions(dates []time.Time) []domain.Prediction {
	out := make([]domain.Prediction, len(dates))
	for i, d := range dates {
		out[i] = domain.UndefinedPrediction(d)
	}
	return out
}

// Compile-time interface check.
var _ Forecaster = (*LagRegression)(nil)
