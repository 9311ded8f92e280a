// Package decision applies the three-state A/B acceptance gate to a
// distribution of per-seed lifts.
package decision

import (
	"errors"
	"fmt"

	"fantasy-alpha-lab/internal/metrics"
)

// Status is the gate outcome.
type Status string

const (
	StatusPass         Status = "pass"
	StatusFail         Status = "fail"
	StatusInconclusive Status = "inconclusive"
)

// GateConfig holds the acceptance thresholds.
type GateConfig struct {
	MinWeeklyPointsLift    float64 `json:"min_weekly_points_lift" yaml:"min_weekly_points_lift"`
	MaxDownsideProbability float64 `json:"max_downside_probability" yaml:"max_downside_probability"`
	MinSuccessfulSeeds     int     `json:"min_successful_seeds" yaml:"min_successful_seeds"`
}

// DefaultGateConfig returns the default thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinWeeklyPointsLift:    0.0,
		MaxDownsideProbability: 0.4,
		MinSuccessfulSeeds:     3,
	}
}

// ErrInvalidGate is returned for thresholds that can never be evaluated.
var ErrInvalidGate = errors.New("invalid decision gate")

// Validate checks threshold ranges.
func (g GateConfig) Validate() error {
	if g.MaxDownsideProbability < 0 || g.MaxDownsideProbability > 1 {
		return fmt.Errorf("%w: max_downside_probability %.3f outside [0, 1]", ErrInvalidGate, g.MaxDownsideProbability)
	}
	if g.MinSuccessfulSeeds < 1 {
		return fmt.Errorf("%w: min_successful_seeds must be >= 1", ErrInvalidGate)
	}
	return nil
}

// DecisionInput is the evidence the gate is applied to.
type DecisionInput struct {
	// Primary is the weekly points lift distribution.
	Primary         metrics.MetricSummary
	SuccessfulSeeds int
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// Result is the gate decision with its rationale.
type Result struct {
	Status   Status            `json:"status"`
	Reasons  []string          `json:"reasons"`
	Criteria []CriterionResult `json:"criteria,omitempty"`
}
