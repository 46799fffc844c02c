package forecaster

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"menu-forecast/internal/domain"
)

func TestLagRegression_ShortHistoryIsUndefined(t *testing.T) {
	ctx := context.Background()
	s := makeSeries(monday, []int64{5, 6, 7}, nil)
	dates := horizon(s.End(), 7)

	for _, f := range []*LagRegression{
		NewRidge(RegressionOptions{}, nil),
		NewLasso(RegressionOptions{}, nil),
	} {
		preds, err := f.FitPredict(ctx, s, dates)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", f.Name(), err)
		}
		if len(preds) != len(dates) {
			t.Fatalf("%s: expected %d predictions, got %d", f.Name(), len(dates), len(preds))
		}
		for _, p := range preds {
			if p.Defined() {
				t.Errorf("%s: expected undefined prediction, got %+v", f.Name(), p)
			}
		}
	}
}

func TestLagRegression_MinHistoryBoundary(t *testing.T) {
	ctx := context.Background()
	ridge := NewRidge(RegressionOptions{MinHistory: 14}, nil)

	// 20 days leave 13 training rows
	s := makeSeries(monday, weeklyPattern(20), nil)
	preds, err := ridge.FitPredict(ctx, s, horizon(s.End(), 1))
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}
	if preds[0].Defined() {
		t.Errorf("expected undefined with 13 rows, got %+v", preds[0])
	}

	// 21 days leave 14
	s = makeSeries(monday, weeklyPattern(21), nil)
	preds, err = ridge.FitPredict(ctx, s, horizon(s.End(), 1))
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}
	if !preds[0].Defined() {
		t.Error("expected a defined prediction with 14 rows")
	}
}

func TestRidge_LearnsWeeklyPattern(t *testing.T) {
	s := makeSeries(monday, weeklyPattern(56), nil)
	dates := horizon(s.End(), 7)

	preds, err := NewRidge(RegressionOptions{}, nil).FitPredict(context.Background(), s, dates)
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}
	for i, d := range dates {
		want := 10.0
		if domain.Weekday(d) >= 5 {
			want = 20
		}
		if math.Abs(preds[i].Point-want) > 1.0 {
			t.Errorf("%s: expected ~%v, got %v", domain.FormatDate(d), want, preds[i].Point)
		}
	}
}

func TestLagRegression_ConstantSeries(t *testing.T) {
	qty := make([]int64, 30)
	for i := range qty {
		qty[i] = 12
	}
	s := makeSeries(monday, qty, nil)
	dates := horizon(s.End(), 5)

	for _, f := range []*LagRegression{
		NewRidge(RegressionOptions{IntervalZ: 1.96}, nil),
		NewLasso(RegressionOptions{IntervalZ: 1.96}, nil),
	} {
		preds, err := f.FitPredict(context.Background(), s, dates)
		if err != nil {
			t.Fatalf("%s: FitPredict failed: %v", f.Name(), err)
		}
		for _, p := range preds {
			if math.Abs(p.Point-12) > 1e-6 {
				t.Errorf("%s: expected 12, got %v", f.Name(), p.Point)
			}
			if math.Abs(p.Upper-p.Lower) > 1e-6 {
				t.Errorf("%s: expected zero-width interval on a perfect fit, got [%v, %v]", f.Name(), p.Lower, p.Upper)
			}
		}
	}
}

func TestLagRegression_IntervalBounds(t *testing.T) {
	// noisy, partly near zero so that lower bounds clamp
	qty := make([]int64, 63)
	for i := range qty {
		qty[i] = int64((i*7)%5 + (i*3)%4)
		if i%7 >= 5 {
			qty[i] += 6
		}
	}
	s := makeSeries(monday, qty, nil)
	dates := horizon(s.End(), 14)

	for _, f := range []*LagRegression{
		NewRidge(RegressionOptions{IntervalZ: 1.96}, nil),
		NewLasso(RegressionOptions{IntervalZ: 1.96}, nil),
	} {
		preds, err := f.FitPredict(context.Background(), s, dates)
		if err != nil {
			t.Fatalf("%s: FitPredict failed: %v", f.Name(), err)
		}
		for _, p := range preds {
			if !p.Defined() {
				t.Fatalf("%s: unexpected undefined prediction", f.Name())
			}
			if p.Point < 0 || p.Lower < 0 {
				t.Errorf("%s: negative output %+v", f.Name(), p)
			}
			if p.Lower > p.Point || p.Point > p.Upper {
				t.Errorf("%s: expected lower <= point <= upper, got %+v", f.Name(), p)
			}
		}
	}
}

func TestLagRegression_DatesInsideHistoryAreUndefined(t *testing.T) {
	s := makeSeries(monday, weeklyPattern(35), nil)
	dates := []time.Time{s.End(), domain.AddDays(s.End(), -3), domain.AddDays(s.End(), 2)}

	preds, err := NewRidge(RegressionOptions{}, nil).FitPredict(context.Background(), s, dates)
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}
	if preds[0].Defined() || preds[1].Defined() {
		t.Errorf("expected dates inside history to be undefined, got %+v %+v", preds[0], preds[1])
	}
	if !preds[2].Defined() {
		t.Error("expected a defined prediction two days ahead")
	}
	if !preds[2].Date.Equal(dates[2]) {
		t.Errorf("expected date %v, got %v", dates[2], preds[2].Date)
	}
}

func TestLagRegression_IgnoresDataAfterHistory(t *testing.T) {
	full := makeSeries(monday, weeklyPattern(49), nil)
	cutoff := domain.AddDays(monday, 41)
	target := domain.AddDays(cutoff, 7)

	ridge := NewRidge(RegressionOptions{}, nil)
	want, err := ridge.FitPredict(context.Background(), full.Until(cutoff), []time.Time{target})
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}

	// corrupt everything after the cutoff
	tampered := makeSeries(monday, weeklyPattern(49), nil)
	for i := 42; i < 49; i++ {
		tampered.Points[i].Quantity = 9999
	}
	got, err := ridge.FitPredict(context.Background(), tampered.Until(cutoff), []time.Time{target})
	if err != nil {
		t.Fatalf("FitPredict failed: %v", err)
	}
	if got[0].Point != want[0].Point {
		t.Errorf("future values leaked into forecast: %v vs %v", got[0].Point, want[0].Point)
	}
}

func TestLagRegression_ConcurrentCallsAreIndependent(t *testing.T) {
	ridge := NewRidge(RegressionOptions{IntervalZ: 1.96}, nil)
	a := makeSeries(monday, weeklyPattern(42), nil)
	qty := make([]int64, 42)
	for i := range qty {
		qty[i] = int64(i % 9)
	}
	b := makeSeries(monday, qty, nil)
	dates := horizon(a.End(), 7)

	wantA, _ := ridge.FitPredict(context.Background(), a, dates)
	wantB, _ := ridge.FitPredict(context.Background(), b, dates)

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, want := a, wantA
			if i%2 == 1 {
				s, want = b, wantB
			}
			got, err := ridge.FitPredict(context.Background(), s, dates)
			if err != nil {
				errs <- err.Error()
				return
			}
			for j := range got {
				if got[j].Point != want[j].Point {
					errs <- "prediction differs between concurrent calls"
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestLagRegression_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := makeSeries(monday, weeklyPattern(42), nil)
	_, err := NewLasso(RegressionOptions{}, nil).FitPredict(ctx, s, horizon(s.End(), 7))
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBuildFeatures_Layout(t *testing.T) {
	holiday := domain.AddDays(monday, 9)
	cal := domain.NewCalendar([]time.Time{holiday})
	qty := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s := makeSeries(monday, qty, cal)

	x, y := BuildFeatures(s)
	if len(x) != 3 || len(y) != 3 {
		t.Fatalf("expected 3 rows after dropping 7, got %d/%d", len(x), len(y))
	}
	if len(x[0]) != len(FeatureNames()) {
		t.Fatalf("expected %d features, got %d", len(FeatureNames()), len(x[0]))
	}

	// first row targets 2024-01-08, a Monday
	row := x[0]
	if y[0] != 8 {
		t.Errorf("expected target 8, got %v", y[0])
	}
	if row[0] != 7 || row[6] != 1 {
		t.Errorf("expected lag1=7 lag7=1, got lag1=%v lag7=%v", row[0], row[6])
	}
	if row[colDowStart] != 1 {
		t.Error("expected Monday one-hot set")
	}
	for i := colDowStart + 1; i < numFeatures; i++ {
		if row[i] != 0 {
			t.Errorf("unexpected one-hot at column %d", i)
		}
	}
	if x[2][colHoliday] != 1 || x[0][colHoliday] != 0 {
		t.Error("holiday flag misplaced")
	}
}

func TestBuildFeatures_MonthEnd(t *testing.T) {
	start := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	s := makeSeries(start, weeklyPattern(14), nil)

	x, _ := BuildFeatures(s)
	for i, row := range x {
		d := s.Points[i+NumLags].Date
		want := 0.0
		if d.Day() == 31 {
			want = 1
		}
		if row[colMonthEnd] != want {
			t.Errorf("%s: expected month-end %v, got %v", domain.FormatDate(d), want, row[colMonthEnd])
		}
	}
}
