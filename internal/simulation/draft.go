package simulation

import (
	"gonum.org/v1/gonum/stat"

	"fantasy-alpha-lab/internal/domain"
)

// DraftStrategy weights roster composition by position.
type DraftStrategy struct {
	Name    string
	Weights map[string]float64
}

// DraftStrategies are evaluated in this order.
var DraftStrategies = []DraftStrategy{
	{Name: "Zero RB", Weights: map[string]float64{"RB": 0.1, "WR": 0.4, "TE": 0.2, "QB": 0.2, "K": 0.05, "D/ST": 0.05}},
	{Name: "RB Heavy", Weights: map[string]float64{"RB": 0.4, "WR": 0.2, "TE": 0.1, "QB": 0.2, "K": 0.05, "D/ST": 0.05}},
	{Name: "Balanced", Weights: map[string]float64{"RB": 0.25, "WR": 0.25, "TE": 0.15, "QB": 0.25, "K": 0.05, "D/ST": 0.05}},
}

// RosterProfile summarizes one championship roster.
type RosterProfile struct {
	Composition     map[string]float64 `json:"composition"`
	StarPlayers     int                `json:"star_players"`
	TotalProjection float64            `json:"total_projection"`
}

// AnalyzeDraftStrategy simulates seasons with ratings tilted toward each
// strategy and profiles the resulting championship rosters, keyed by
// strategy name. Only available in preseason mode.
func (s *Simulator) AnalyzeDraftStrategy() (map[string][]RosterProfile, error) {
	if !s.preseason {
		return nil, ErrNotPreseason
	}

	iterations := max(1, s.numSimulations/10)
	spots := s.playoffSpots()
	results := make(map[string][]RosterProfile, len(DraftStrategies))

	for _, strategy := range DraftStrategies {
		var rosters [][]*domain.Player
		for i := 0; i < iterations; i++ {
			ratings := s.strategyRatings(strategy.Weights)
			season := s.SimulateSeason(ratings)
			ranked := s.standings(season)
			playoffTeams := ranked[:min(spots, len(ranked))]
			if len(playoffTeams) < 2 {
				continue
			}
			champ := s.SimulatePlayoffs(playoffTeams, ratings)
			if team, ok := s.teams[champ]; ok {
				rosters = append(rosters, append([]*domain.Player(nil), team.Roster...))
			}
		}
		results[strategy.Name] = s.profileRosters(rosters)
	}
	return results, nil
}

// strategyRatings scales a copy of each team's mean by 0.75 + 0.5*match,
// where match is the weighted overlap of the roster with the strategy.
func (s *Simulator) strategyRatings(weights map[string]float64) Ratings {
	ratings := s.ratings.Clone()
	for _, team := range s.league.Teams {
		var match float64
		for pos, share := range s.rosterComposition(team.Roster) {
			match += weights[pos] * share
		}
		r := ratings[team.ID]
		r.Mean *= 0.75 + 0.5*match
		ratings[team.ID] = r
	}
	return ratings
}

// rosterComposition returns each tracked position's share of projected
// season points. Players with no projection are ignored.
func (s *Simulator) rosterComposition(roster []*domain.Player) map[string]float64 {
	comp := make(map[string]float64, len(domain.RosterPositions))
	for _, pos := range domain.RosterPositions {
		comp[pos] = 0
	}
	var total float64
	for _, p := range roster {
		if p == nil {
			continue
		}
		pos := p.NormalizedPosition()
		if _, tracked := comp[pos]; !tracked {
			continue
		}
		v := s.playerSeasonProjection(p)
		if v <= 0 {
			continue
		}
		comp[pos] += v
		total += v
	}
	if total > 0 {
		for pos := range comp {
			comp[pos] /= total
		}
	}
	return comp
}

func (s *Simulator) profileRosters(rosters [][]*domain.Player) []RosterProfile {
	out := make([]RosterProfile, 0, len(rosters))
	for _, roster := range rosters {
		profile := RosterProfile{Composition: s.rosterComposition(roster)}

		var projections []float64
		for _, p := range roster {
			if v := s.playerSeasonProjection(p); v > 0 {
				projections = append(projections, v)
			}
		}
		if len(projections) > 0 {
			mean, std := stat.PopMeanStdDev(projections, nil)
			cutoff := mean + std
			for _, v := range projections {
				if v > cutoff {
					profile.StarPlayers++
				}
				profile.TotalProjection += v
			}
		}
		out = append(out, profile)
	}
	return out
}
