package simulation

import (
	"context"
	"fmt"
	"sort"

	"fantasy-alpha-lab/internal/domain"
)

// Move types and priorities.
const (
	MoveTrade = "trade"
	MoveAdd   = "add"

	PriorityHigh   = "high"
	PriorityMedium = "medium"

	maxMoves            = 5
	tradePriorityFactor = 0.10
	addPriorityFactor   = 0.05
)

// Move is one recommended trade target or free-agent pickup.
type Move struct {
	Type           string          `json:"type"`
	Player         *domain.Player  `json:"player"`
	TargetTeam     string          `json:"target_team,omitempty"`
	ValueAdded     float64         `json:"value_added"`
	Priority       string          `json:"priority"`
	Factors        []string        `json:"factors,omitempty"`
	ConfidenceBand *ConfidenceBand `json:"confidence_band,omitempty"`
}

// OptimalMoves ranks trade targets on other rosters and free-agent adds by
// value added over the team's current starter at the same position.
// Only positive-value moves are kept; the top five are returned.
func (s *Simulator) OptimalMoves(ctx context.Context, teamID int, freeAgents []*domain.Player, explain bool) ([]Move, error) {
	team, ok := s.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, teamID)
	}
	rosterValue := s.ratings[teamID].RosterValue
	week := s.currentWeek()
	if s.alphaMode {
		s.projectionMap(ctx, week, freeAgents)
	}

	var moves []Move
	for _, other := range s.league.Teams {
		if other.ID == teamID {
			continue
		}
		for _, p := range other.Roster {
			if p == nil {
				continue
			}
			value := s.valueAdded(ctx, p, team, week)
			if value <= 0 {
				continue
			}
			m := Move{
				Type:       MoveTrade,
				Player:     p,
				TargetTeam: other.Name,
				ValueAdded: value,
				Priority:   priority(value, rosterValue, tradePriorityFactor),
			}
			s.explainMove(ctx, &m, week, explain)
			moves = append(moves, m)
		}
	}

	candidates := s.freeAgentCandidates(ctx, freeAgents, week)
	for _, p := range candidates {
		value := s.valueAdded(ctx, p, team, week)
		if value <= 0 {
			continue
		}
		m := Move{
			Type:       MoveAdd,
			Player:     p,
			ValueAdded: value,
			Priority:   priority(value, rosterValue, addPriorityFactor),
		}
		s.explainMove(ctx, &m, week, explain)
		moves = append(moves, m)
	}

	sort.SliceStable(moves, func(i, j int) bool { return moves[i].ValueAdded > moves[j].ValueAdded })
	if len(moves) > maxMoves {
		moves = moves[:maxMoves]
	}
	return moves, nil
}

// freeAgentCandidates keeps the best CandidatePoolSize free agents by
// risk-adjusted score in alpha mode and all of them otherwise.
func (s *Simulator) freeAgentCandidates(ctx context.Context, freeAgents []*domain.Player, week int) []*domain.Player {
	out := make([]*domain.Player, 0, len(freeAgents))
	for _, p := range freeAgents {
		if p != nil {
			out = append(out, p)
		}
	}
	if !s.alphaMode {
		return out
	}

	scores := make(map[*domain.Player]float64, len(out))
	for _, p := range out {
		scores[p] = s.RiskAdjustedScore(ctx, p, week)
	}
	sort.SliceStable(out, func(i, j int) bool { return scores[out[i]] > scores[out[j]] })
	if pool := s.alphaConfig.CandidatePoolSize; pool >= 0 && len(out) > pool {
		out = out[:pool]
	}
	return out
}

// currentStarter is the team's best player at position: by risk-adjusted
// score in alpha mode, by season projection otherwise.
func (s *Simulator) currentStarter(ctx context.Context, team *domain.Team, position string, week int) *domain.Player {
	var best *domain.Player
	var bestScore float64
	for _, p := range team.Roster {
		if p == nil || p.NormalizedPosition() != position {
			continue
		}
		var score float64
		if s.alphaMode {
			score = s.RiskAdjustedScore(ctx, p, week)
		} else {
			score = s.playerSeasonProjection(p)
		}
		if best == nil || score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}

// valueAdded compares p with the team's starter at the same position:
// weekly alpha means in alpha mode, season projections otherwise.
func (s *Simulator) valueAdded(ctx context.Context, p *domain.Player, team *domain.Team, week int) float64 {
	starter := s.currentStarter(ctx, team, p.NormalizedPosition(), week)
	if !s.alphaMode {
		return s.playerSeasonProjection(p) - s.playerSeasonProjection(starter)
	}

	proj, ok := s.projectionFor(ctx, p, week)
	if !ok {
		return 0
	}
	var base float64
	if starterProj, ok := s.projectionFor(ctx, starter, week); ok {
		base = starterProj.WeeklyMean
	}
	return proj.WeeklyMean - base
}

func (s *Simulator) explainMove(ctx context.Context, m *Move, week int, explain bool) {
	if !explain || !s.alphaMode {
		return
	}
	proj, ok := s.projectionFor(ctx, m.Player, week)
	band := confidenceBand(proj, ok)
	m.Factors = compactFactors(proj, ok)
	m.ConfidenceBand = &band
}

func priority(value, rosterValue, factor float64) string {
	if value > rosterValue*factor {
		return PriorityHigh
	}
	return PriorityMedium
}
