package decision

import "fmt"

// Evaluator evaluates the corpus acceptance criteria.
type Evaluator struct{}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces DecisionResult from DecisionInput.
// PASS if ALL criteria pass, FAIL otherwise.
func (e *Evaluator) Evaluate(input DecisionInput) (*DecisionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	criteria := e.evaluateCriteria(input)

	decision := DecisionPass
	for _, c := range criteria {
		if !c.Pass {
			decision = DecisionFail
			break
		}
	}

	return &DecisionResult{
		Decision: decision,
		Criteria: criteria,
		Input:    input,
	}, nil
}

func (e *Evaluator) evaluateCriteria(input DecisionInput) []CriterionResult {
	criteria := make([]CriterionResult, 3)

	// 1. at least one entity with a scored baseline
	criteria[0] = CriterionResult{
		Name:      "Baseline scored",
		Threshold: ">= 1 entity",
		Actual:    fmt.Sprintf("%d/%d", input.BaselineScored, input.Entities),
		Pass:      input.BaselineScored > 0 && !isUndefined(input.BaselineSMAPE),
	}

	// 2. at least one entity with a scored candidate
	criteria[1] = CriterionResult{
		Name:      "Candidate scored",
		Threshold: ">= 1 entity",
		Actual:    fmt.Sprintf("%d/%d", input.CandidateScored, input.Entities),
		Pass:      input.CandidateScored > 0 && !isUndefined(input.CandidateSMAPE),
	}

	// 3. candidate mean sMAPE <= baseline mean sMAPE + tolerance
	cmp := "undefined"
	pass := false
	if !isUndefined(input.BaselineSMAPE) && !isUndefined(input.CandidateSMAPE) {
		cmp = fmt.Sprintf("candidate=%.6f, baseline=%.6f", input.CandidateSMAPE, input.BaselineSMAPE)
		pass = input.CandidateSMAPE <= input.BaselineSMAPE+input.Tolerance
	}
	criteria[2] = CriterionResult{
		Name:      "Candidate sMAPE not worse",
		Threshold: fmt.Sprintf("candidate <= baseline + %g", input.Tolerance),
		Actual:    cmp,
		Pass:      pass,
	}

	return criteria
}
