package simulation

import (
	"context"
	"fmt"
	"math"

	"fantasy-alpha-lab/internal/alpha"
	"fantasy-alpha-lab/internal/domain"
)

// Explain factor texts.
const (
	FactorRecentForm      = "Recent form above preseason prior"
	FactorMatchup         = "Favorable matchup"
	FactorInjury          = "Injury risk discount applied"
	FactorExternalSignal  = "External signal adjustment applied"
	FactorBaselinePrior   = "Projection mostly driven by baseline prior"
	FactorNoProjection    = "No alpha projection available"
	FactorAlphaDisabled   = "Alpha mode disabled; using baseline projection"
	maxExplanationFactors = 3
)

// ConfidenceBand is a one-std band around the weekly mean.
type ConfidenceBand struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// PlayerExplanation explains one recommended player.
type PlayerExplanation struct {
	Player         string         `json:"player"`
	Factors        []string       `json:"factors"`
	ConfidenceBand ConfidenceBand `json:"confidence_band"`
}

// LineupRecommendation compares the current lineup with the optimized one.
type LineupRecommendation struct {
	TeamID            int                 `json:"team_id"`
	Week              int                 `json:"week"`
	CurrentLineup     []string            `json:"current_lineup"`
	RecommendedLineup []string            `json:"recommended_lineup"`
	ProjectedDelta    float64             `json:"projected_delta"`
	ExpectedPoints    float64             `json:"expected_points"`
	Details           []PlayerExplanation `json:"details,omitempty"`
}

// RecommendLineup recommends a lineup for teamID. A week <= 0 means the
// current week.
func (s *Simulator) RecommendLineup(ctx context.Context, teamID, week int, explain bool) (*LineupRecommendation, error) {
	team, ok := s.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, teamID)
	}
	if week <= 0 {
		week = s.currentWeek()
	}
	if s.alphaMode {
		s.projectionMap(ctx, week, nil)
	}

	current := s.CurrentLineup(ctx, team, week)
	optimized := s.OptimizeLineup(ctx, team, week)
	currentScore := s.LineupScore(ctx, current, week)
	optimizedScore := s.LineupScore(ctx, optimized, week)

	rec := &LineupRecommendation{
		TeamID:            teamID,
		Week:              week,
		CurrentLineup:     playerNames(current),
		RecommendedLineup: playerNames(optimized),
		ProjectedDelta:    optimizedScore.Mean - currentScore.Mean,
		ExpectedPoints:    optimizedScore.Mean,
	}
	if !explain {
		return rec, nil
	}

	rec.Details = make([]PlayerExplanation, 0, len(optimized))
	for _, p := range optimized {
		if !s.alphaMode {
			rec.Details = append(rec.Details, PlayerExplanation{
				Player:  playerName(p),
				Factors: []string{FactorAlphaDisabled},
			})
			continue
		}
		proj, ok := s.projectionFor(ctx, p, week)
		rec.Details = append(rec.Details, explainProjection(playerName(p), proj, ok))
	}
	return rec, nil
}

func explainProjection(name string, proj domain.PlayerProjection, ok bool) PlayerExplanation {
	return PlayerExplanation{
		Player:         name,
		Factors:        compactFactors(proj, ok),
		ConfidenceBand: confidenceBand(proj, ok),
	}
}

func confidenceBand(proj domain.PlayerProjection, ok bool) ConfidenceBand {
	if !ok {
		return ConfidenceBand{}
	}
	low := math.Max(0, proj.WeeklyMean-proj.WeeklyStd)
	return ConfidenceBand{
		Low:  low,
		Mid:  proj.WeeklyMean,
		High: math.Max(low, proj.WeeklyMean+proj.WeeklyStd),
	}
}

func compactFactors(proj domain.PlayerProjection, ok bool) []string {
	if !ok {
		return []string{FactorNoProjection}
	}
	c := proj.Components
	component := func(key string, fallback float64) float64 {
		if v, ok := c[key]; ok {
			return v
		}
		return fallback
	}

	var factors []string
	if component(alpha.ComponentRecent, 0) > component(alpha.ComponentPrior, 0) {
		factors = append(factors, FactorRecentForm)
	}
	if component(alpha.ComponentMatchupFactor, 1) > 1 {
		factors = append(factors, FactorMatchup)
	}
	if component(alpha.ComponentInjuryFactor, 1) < 1 {
		factors = append(factors, FactorInjury)
	}
	if component(alpha.ComponentProviderAdj, 0) != 0 {
		factors = append(factors, FactorExternalSignal)
	}
	if len(factors) == 0 {
		factors = append(factors, FactorBaselinePrior)
	}
	if len(factors) > maxExplanationFactors {
		factors = factors[:maxExplanationFactors]
	}
	return factors
}

func playerName(p *domain.Player) string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("player_%d", p.ID)
}

func playerNames(players []*domain.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = playerName(p)
	}
	return out
}
