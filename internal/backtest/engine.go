// Package backtest compares baseline and alpha-optimized lineups for every
// team of an alpha-mode simulator.
package backtest

import (
	"math"

	"fantasy-alpha-lab/internal/domain"
)

// TeamResult holds one team's current-vs-optimized comparison.
type TeamResult struct {
	TeamID         int     `json:"team_id"`
	BaselinePoints float64 `json:"baseline_points"`
	AlphaPoints    float64 `json:"alpha_points"`
	PseudoWinProb  float64 `json:"pseudo_win_probability"`
	PseudoOutcome  float64 `json:"pseudo_outcome"`
}

// Engine accumulates per-team lineup comparisons.
//
// The Brier score it reports compares a probability derived from the alpha
// projections with an outcome derived from the same projections. It is a
// self-consistency check, not calibration against observed results.
type Engine struct {
	projections map[int]domain.PlayerProjection
	teams       []TeamResult
}

// NewEngine creates an engine over one week's projection map.
func NewEngine(projections map[int]domain.PlayerProjection) *Engine {
	return &Engine{projections: projections}
}

// OnTeam records one team's current and optimized lineups.
func (e *Engine) OnTeam(teamID int, current, optimized []*domain.Player) TeamResult {
	baseline := e.lineupPoints(current)
	alpha := e.lineupPoints(optimized)

	r := TeamResult{
		TeamID:         teamID,
		BaselinePoints: baseline,
		AlphaPoints:    alpha,
		PseudoWinProb:  alpha / math.Max(1, baseline+alpha),
	}
	if alpha >= baseline {
		r.PseudoOutcome = 1
	}
	e.teams = append(e.teams, r)
	return r
}

// lineupPoints sums weekly means; players without a projection add nothing.
func (e *Engine) lineupPoints(lineup []*domain.Player) float64 {
	var total float64
	for _, p := range lineup {
		if p == nil {
			continue
		}
		if proj, ok := e.projections[p.ID]; ok {
			total += proj.WeeklyMean
		}
	}
	return total
}

// Teams returns the recorded comparisons in insertion order.
func (e *Engine) Teams() []TeamResult {
	return append([]TeamResult(nil), e.teams...)
}

// WeeklyPointsDelta is the mean per-team alpha minus baseline points.
func (e *Engine) WeeklyPointsDelta() float64 {
	var baseline, alpha float64
	for _, t := range e.teams {
		baseline += t.BaselinePoints
		alpha += t.AlphaPoints
	}
	return (alpha - baseline) / float64(max(1, len(e.teams)))
}

// BrierScore averages the squared pseudo-probability errors.
func (e *Engine) BrierScore() float64 {
	var sum float64
	for _, t := range e.teams {
		d := t.PseudoWinProb - t.PseudoOutcome
		sum += d * d
	}
	return sum / float64(max(1, len(e.teams)))
}
