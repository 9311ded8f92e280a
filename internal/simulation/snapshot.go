package simulation

import (
	"context"

	"fantasy-alpha-lab/internal/domain"
)

// WeekSnapshot is the player universe for one week: every team, its active
// starters and the free-agent candidate pool.
type WeekSnapshot struct {
	Week       int
	Teams      []*domain.Team
	Lineups    map[int][]*domain.Player
	FreeAgents []*domain.Player
}

// BuildWeekSnapshot collects starters from the week's box scores, falling
// back to roster lineup slots for teams without one. Source errors degrade
// to empty box scores or an empty free-agent pool.
func BuildWeekSnapshot(ctx context.Context, league *domain.League, week, poolSize int) *WeekSnapshot {
	if week <= 0 {
		week = max(1, league.CurrentWeek)
	}
	snap := &WeekSnapshot{
		Week:    week,
		Teams:   append([]*domain.Team(nil), league.Teams...),
		Lineups: make(map[int][]*domain.Player, len(league.Teams)),
	}
	for _, t := range league.Teams {
		snap.Lineups[t.ID] = nil
	}

	boxScores, err := league.BoxScores(ctx, week)
	if err != nil {
		boxScores = nil
	}
	for _, bs := range boxScores {
		if _, ok := snap.Lineups[bs.HomeTeamID]; ok {
			snap.Lineups[bs.HomeTeamID] = starters(bs.HomeLineup)
		}
		if _, ok := snap.Lineups[bs.AwayTeamID]; ok {
			snap.Lineups[bs.AwayTeamID] = starters(bs.AwayLineup)
		}
	}
	for _, t := range league.Teams {
		if len(snap.Lineups[t.ID]) == 0 {
			snap.Lineups[t.ID] = starters(t.Roster)
		}
	}

	freeAgents, err := league.FreeAgents(ctx, week, poolSize)
	if err == nil {
		snap.FreeAgents = freeAgents
	}
	return snap
}

func starters(players []*domain.Player) []*domain.Player {
	var out []*domain.Player
	for _, p := range players {
		if p != nil && p.IsStarter() {
			out = append(out, p)
		}
	}
	return out
}
