package metrics

import (
	"math"
	"sort"
	"sync"

	"menu-forecast/internal/domain"
)

// AcceptanceTolerance is the slack allowed when comparing corpus sMAPE means.
const AcceptanceTolerance = 1e-12

// Summary holds corpus-wide means of the four backtest metrics.
// Every entity carries equal weight; NaN entries are skipped per metric.
type Summary struct {
	Entities int

	MAPEBaseline   float64
	SMAPEBaseline  float64
	MAPECandidate  float64
	SMAPECandidate float64

	// entities contributing a defined value
	BaselineScored  int
	CandidateScored int

	// entities where the candidate did not lose on the compared metric
	CandidateWins int
	WinRate       float64 // CandidateWins / CandidateScored
}

// Accepted reports whether the candidate's corpus sMAPE does not exceed the baseline's.
// Undefined means on either side fail the check.
func (s Summary) Accepted() bool {
	if math.IsNaN(s.SMAPEBaseline) || math.IsNaN(s.SMAPECandidate) {
		return false
	}
	return s.SMAPECandidate <= s.SMAPEBaseline+AcceptanceTolerance
}

// Summarize computes the corpus summary from per-entity results.
// metric selects the comparison used for the win count (mape or smape).
func Summarize(results []*domain.BacktestResult, metric string) Summary {
	n := len(results)
	mb := make([]float64, 0, n)
	sb := make([]float64, 0, n)
	mc := make([]float64, 0, n)
	sc := make([]float64, 0, n)

	wins := 0
	for _, r := range results {
		mb = append(mb, r.Baseline.MAPE)
		sb = append(sb, r.Baseline.SMAPE)
		mc = append(mc, r.Candidate.MAPE)
		sc = append(sc, r.Candidate.SMAPE)

		cand, base := r.Candidate.Get(metric), r.Baseline.Get(metric)
		if !math.IsNaN(cand) && !(cand > base) {
			wins++
		}
	}

	s := Summary{Entities: n, CandidateWins: wins}
	s.MAPEBaseline, _ = NaNMean(mb)
	s.SMAPEBaseline, s.BaselineScored = NaNMean(sb)
	s.MAPECandidate, _ = NaNMean(mc)
	s.SMAPECandidate, s.CandidateScored = NaNMean(sc)
	s.WinRate = computeWinRate(wins, s.CandidateScored)
	return s
}

// Aggregator collects backtest results from concurrent workers.
type Aggregator struct {
	mu      sync.Mutex
	metric  string
	results []*domain.BacktestResult
}

// NewAggregator creates an aggregator comparing on metric.
func NewAggregator(metric string) *Aggregator {
	if metric == "" {
		metric = domain.MetricSMAPE
	}
	return &Aggregator{metric: metric}
}

// Add records one entity result. Nil results are ignored.
func (a *Aggregator) Add(r *domain.BacktestResult) {
	if r == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
}

// Results returns the collected results sorted by entity id.
func (a *Aggregator) Results() []*domain.BacktestResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*domain.BacktestResult, len(a.results))
	copy(out, a.results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// Summary computes the corpus summary of everything collected so far.
func (a *Aggregator) Summary() Summary {
	return Summarize(a.Results(), a.metric)
}
