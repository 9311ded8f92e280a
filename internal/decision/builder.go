package decision

import "fantasy-alpha-lab/internal/metrics"

// BuildInput extracts gate evidence from a run summary.
// The gate is driven by the weekly points lift.
func BuildInput(summary metrics.RunSummary) DecisionInput {
	return DecisionInput{
		Primary:         summary.WeeklyPointsLift,
		SuccessfulSeeds: summary.SuccessfulSeeds,
	}
}
