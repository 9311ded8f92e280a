package backtest

import (
	"context"
	"errors"
	"fmt"

	"fantasy-alpha-lab/internal/simulation"
)

// ErrAlphaModeRequired is returned when the simulator is not in alpha mode.
var ErrAlphaModeRequired = errors.New("backtest requires an alpha-mode simulator")

// Config controls the backtest.
type Config struct {
	// SampleWeeks projects the weekly delta over this many weeks; minimum 1.
	SampleWeeks int `json:"sample_weeks" yaml:"sample_weeks"`
}

// DefaultConfig returns the default backtest settings.
func DefaultConfig() Config {
	return Config{SampleWeeks: 3}
}

// Result holds backtest output.
type Result struct {
	EVDelta                 float64      `json:"ev_delta"`
	WeeklyPointsDelta       float64      `json:"weekly_points_delta"`
	PlayoffEquityDelta      float64      `json:"playoff_equity_delta"`
	ChampionshipEquityDelta float64      `json:"championship_equity_delta"`
	BrierScore              float64      `json:"brier_score"`
	SampleWeeks             int          `json:"sample_weeks"`
	Teams                   []TeamResult `json:"teams"`
}

// Run compares each team's current lineup with its alpha-optimized lineup,
// then runs one season batch on baseline ratings and one on alpha-blended
// ratings to measure equity deltas.
func Run(ctx context.Context, sim *simulation.Simulator, cfg Config) (*Result, error) {
	if sim == nil || !sim.AlphaMode() {
		return nil, ErrAlphaModeRequired
	}
	sampleWeeks := max(1, cfg.SampleWeeks)

	engine := NewEngine(sim.ProjectionMap(ctx, 0))
	for _, team := range sim.League().Teams {
		current := sim.CurrentLineup(ctx, team, 0)
		optimized := sim.OptimizeLineup(ctx, team, 0)
		engine.OnTeam(team.ID, current, optimized)
	}

	baseline, err := sim.RunSimulationsWithRatings(ctx, sim.TeamRatings())
	if err != nil {
		return nil, fmt.Errorf("baseline equity run: %w", err)
	}
	alphaRatings, err := sim.AlphaTeamRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("alpha ratings: %w", err)
	}
	alpha, err := sim.RunSimulationsWithRatings(ctx, alphaRatings)
	if err != nil {
		return nil, fmt.Errorf("alpha equity run: %w", err)
	}

	weekly := engine.WeeklyPointsDelta()
	return &Result{
		EVDelta:                 weekly * float64(sampleWeeks),
		WeeklyPointsDelta:       weekly,
		PlayoffEquityDelta:      alpha.MeanPlayoffOdds() - baseline.MeanPlayoffOdds(),
		ChampionshipEquityDelta: alpha.MeanChampionshipOdds() - baseline.MeanChampionshipOdds(),
		BrierScore:              engine.BrierScore(),
		SampleWeeks:             sampleWeeks,
		Teams:                   engine.Teams(),
	}, nil
}
