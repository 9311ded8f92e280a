package decision

import "fmt"

// Evaluator applies a GateConfig.
type Evaluator struct {
	gate GateConfig
}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator(gate GateConfig) *Evaluator {
	return &Evaluator{gate: gate}
}

// Evaluate produces a Result from the lift distribution.
//
// Order matters: insufficient seeds is inconclusive, then pass, then fail.
// Anything left over is inconclusive.
func (e *Evaluator) Evaluate(input DecisionInput) *Result {
	g := e.gate
	s := input.Primary
	criteria := e.criteria(input)

	if input.SuccessfulSeeds < g.MinSuccessfulSeeds {
		return &Result{
			Status: StatusInconclusive,
			Reasons: []string{fmt.Sprintf(
				"Insufficient successful seeds (%d) < min_successful_seeds (%d)",
				input.SuccessfulSeeds, g.MinSuccessfulSeeds)},
			Criteria: criteria,
		}
	}

	if s.Mean > g.MinWeeklyPointsLift && s.DownsideProbability <= g.MaxDownsideProbability {
		return &Result{
			Status: StatusPass,
			Reasons: []string{fmt.Sprintf(
				"Mean weekly points lift %.3f > %.3f and downside_probability %.3f <= %.3f",
				s.Mean, g.MinWeeklyPointsLift, s.DownsideProbability, g.MaxDownsideProbability)},
			Criteria: criteria,
		}
	}

	if s.P95 <= g.MinWeeklyPointsLift || s.DownsideProbability > g.MaxDownsideProbability {
		return &Result{
			Status: StatusFail,
			Reasons: []string{fmt.Sprintf(
				"Lift profile did not clear gate: p95=%.3f, mean=%.3f, downside_probability=%.3f",
				s.P95, s.Mean, s.DownsideProbability)},
			Criteria: criteria,
		}
	}

	reason := "Signal is mixed across seeds; additional data is required"
	if s.P05 <= g.MinWeeklyPointsLift && g.MinWeeklyPointsLift <= s.P95 {
		reason = fmt.Sprintf("Confidence band overlaps threshold: p05=%.3f, p95=%.3f, threshold=%.3f",
			s.P05, s.P95, g.MinWeeklyPointsLift)
	}
	return &Result{
		Status:   StatusInconclusive,
		Reasons:  []string{reason},
		Criteria: criteria,
	}
}

// criteria builds the checklist shown in the report.
func (e *Evaluator) criteria(input DecisionInput) []CriterionResult {
	g := e.gate
	s := input.Primary
	return []CriterionResult{
		{
			Name:      "Successful seeds",
			Threshold: fmt.Sprintf(">= %d", g.MinSuccessfulSeeds),
			Actual:    fmt.Sprintf("%d", input.SuccessfulSeeds),
			Pass:      input.SuccessfulSeeds >= g.MinSuccessfulSeeds,
		},
		{
			Name:      "Mean weekly points lift",
			Threshold: fmt.Sprintf("> %.3f", g.MinWeeklyPointsLift),
			Actual:    fmt.Sprintf("%.4f", s.Mean),
			Pass:      s.Mean > g.MinWeeklyPointsLift,
		},
		{
			Name:      "Downside probability",
			Threshold: fmt.Sprintf("<= %.3f", g.MaxDownsideProbability),
			Actual:    fmt.Sprintf("%.4f", s.DownsideProbability),
			Pass:      s.DownsideProbability <= g.MaxDownsideProbability,
		},
		{
			Name:      "Lift p95 clears threshold",
			Threshold: fmt.Sprintf("> %.3f", g.MinWeeklyPointsLift),
			Actual:    fmt.Sprintf("%.4f", s.P95),
			Pass:      s.P95 > g.MinWeeklyPointsLift,
		},
	}
}
