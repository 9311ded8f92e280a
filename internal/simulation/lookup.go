package simulation

import (
	"context"
	"maps"
	"math"

	"fantasy-alpha-lab/internal/alpha"
	"fantasy-alpha-lab/internal/domain"
)

const (
	minAlphaStd     = 6.0
	riskAversion    = 0.15
	baselineStdFrac = 0.18
	alphaStdFrac    = 0.2
)

// LineupScore is a lineup's weekly scoring distribution.
type LineupScore struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ProjectionMap returns alpha projections for every rostered player and the
// week's free-agent pool. Results are cached for the most recent week only;
// asking for another week rebuilds the whole map. A week <= 0 means the
// league's current week. The returned map is a copy.
func (s *Simulator) ProjectionMap(ctx context.Context, week int) map[int]domain.PlayerProjection {
	cached := s.projectionMap(ctx, week, nil)
	out := make(map[int]domain.PlayerProjection, len(cached))
	for id, p := range cached {
		p.Components = maps.Clone(p.Components)
		out[id] = p
	}
	return out
}

func (s *Simulator) projectionMap(ctx context.Context, week int, extra []*domain.Player) map[int]domain.PlayerProjection {
	if week <= 0 {
		week = s.currentWeek()
	}
	if s.projCache != nil && s.cachedWeek == week && len(extra) == 0 {
		return s.projCache
	}

	snap := BuildWeekSnapshot(ctx, s.league, week, s.alphaConfig.CandidatePoolSize)
	players := make([]*domain.Player, 0, len(snap.FreeAgents))
	for _, t := range snap.Teams {
		players = append(players, t.Roster...)
	}
	players = append(players, snap.FreeAgents...)

	sig := s.signals(ctx, week)
	projections := alpha.ProjectPlayers(players, s.alphaConfig, sig)
	for id, p := range alpha.ProjectPlayers(extra, s.alphaConfig, sig) {
		projections[id] = p
	}

	s.projCache = projections
	s.cachedWeek = week
	return projections
}

func (s *Simulator) signals(ctx context.Context, week int) alpha.Signals {
	// The provider is always wrapped in a SafeProvider, so errors are already
	// logged and replaced with empty maps.
	adj, _ := s.provider.PlayerAdjustments(ctx, s.league, week)
	inj, _ := s.provider.InjuryOverrides(ctx, s.league, week)
	match, _ := s.provider.MatchupOverrides(ctx, s.league, week)
	return alpha.Signals{Adjustments: adj, Injuries: inj, Matchups: match}
}

func (s *Simulator) projectionFor(ctx context.Context, p *domain.Player, week int) (domain.PlayerProjection, bool) {
	if p == nil {
		return domain.PlayerProjection{}, false
	}
	proj, ok := s.projectionMap(ctx, week, nil)[p.ID]
	return proj, ok
}

// RiskAdjustedScore ranks players for lineup slots. Baseline mode uses the
// weekly share of the season projection; alpha mode uses mean - 0.15*std,
// or zero when the player has no projection.
func (s *Simulator) RiskAdjustedScore(ctx context.Context, p *domain.Player, week int) float64 {
	if !s.alphaMode {
		return s.playerSeasonProjection(p) / float64(s.regGames())
	}
	proj, ok := s.projectionFor(ctx, p, week)
	if !ok {
		return 0
	}
	return proj.WeeklyMean - riskAversion*proj.WeeklyStd
}

// OptimizeLineup greedily fills the starter slots in order, picking the
// best eligible unused player for each slot. Slots with no eligible player
// are left empty.
func (s *Simulator) OptimizeLineup(ctx context.Context, team *domain.Team, week int) []*domain.Player {
	if team == nil {
		return nil
	}
	scores := make(map[*domain.Player]float64, len(team.Roster))
	for _, p := range team.Roster {
		if p != nil {
			scores[p] = s.RiskAdjustedScore(ctx, p, week)
		}
	}

	used := make(map[int]struct{}, len(domain.StarterSlots))
	var lineup []*domain.Player
	for _, slot := range domain.StarterSlots {
		var best *domain.Player
		for _, p := range team.Roster {
			if p == nil {
				continue
			}
			if _, taken := used[p.ID]; taken || !p.EligibleFor(slot) {
				continue
			}
			if best == nil || scores[p] > scores[best] {
				best = p
			}
		}
		if best == nil {
			continue
		}
		lineup = append(lineup, best)
		used[best.ID] = struct{}{}
	}
	return lineup
}

// CurrentLineup returns the team's active starters, or the optimized lineup
// when nobody is in a starting slot.
func (s *Simulator) CurrentLineup(ctx context.Context, team *domain.Team, week int) []*domain.Player {
	if team == nil {
		return nil
	}
	var starters []*domain.Player
	for _, p := range team.Roster {
		if p != nil && p.IsStarter() {
			starters = append(starters, p)
		}
	}
	if len(starters) > 0 {
		return starters
	}
	return s.OptimizeLineup(ctx, team, week)
}

// LineupScore sums a lineup's weekly distribution. Alpha mode adds player
// variances; baseline mode uses 18% of the mean. Std is floored at 6.
func (s *Simulator) LineupScore(ctx context.Context, lineup []*domain.Player, week int) LineupScore {
	if !s.alphaMode {
		var weekly float64
		reg := float64(s.regGames())
		for _, p := range lineup {
			weekly += s.playerSeasonProjection(p) / reg
		}
		return LineupScore{Mean: weekly, Std: math.Max(minAlphaStd, weekly*baselineStdFrac)}
	}

	var mean, variance float64
	var found int
	for _, p := range lineup {
		proj, ok := s.projectionFor(ctx, p, week)
		if !ok {
			continue
		}
		mean += proj.WeeklyMean
		variance += proj.WeeklyStd * proj.WeeklyStd
		found++
	}
	std := math.Sqrt(variance)
	if found == 0 {
		std = math.Max(minAlphaStd, mean*alphaStdFrac)
	}
	return LineupScore{Mean: mean, Std: math.Max(minAlphaStd, std)}
}
