package domain

import "context"

// Game outcome codes as reported per team per week.
const (
	OutcomeWin       = "W"
	OutcomeLoss      = "L"
	OutcomeTie       = "T"
	OutcomeUndecided = "U"
)

// Settings holds league scoring-period settings.
type Settings struct {
	RegSeasonCount   int `json:"reg_season_count" yaml:"reg_season_count"`
	PlayoffTeamCount int `json:"playoff_team_count" yaml:"playoff_team_count"`
}

// Team is one fantasy franchise in a league snapshot.
// Scores, Outcomes and Schedule are indexed by week-1.
type Team struct {
	ID        int       `json:"team_id" yaml:"team_id"`
	Name      string    `json:"team_name" yaml:"team_name"`
	Wins      int       `json:"wins" yaml:"wins"`
	Losses    int       `json:"losses" yaml:"losses"`
	Scores    []float64 `json:"scores" yaml:"scores"`
	Outcomes  []string  `json:"outcomes" yaml:"outcomes"`
	Schedule  []int     `json:"schedule" yaml:"schedule"` // opponent team id per week
	Roster    []*Player `json:"roster" yaml:"roster"`
	PointsFor float64   `json:"points_for" yaml:"points_for"`
}

// ObservedScores returns scores of decided games only.
func (t *Team) ObservedScores() []float64 {
	var out []float64
	for i, o := range t.Outcomes {
		if o == OutcomeUndecided || i >= len(t.Scores) {
			continue
		}
		out = append(out, t.Scores[i])
	}
	return out
}

// OpponentForWeek returns the scheduled opponent for a 1-based week.
func (t *Team) OpponentForWeek(week int) (int, bool) {
	if week < 1 || week > len(t.Schedule) {
		return 0, false
	}
	return t.Schedule[week-1], true
}

// BoxScore is one head-to-head matchup for a week with both active lineups.
type BoxScore struct {
	HomeTeamID int       `json:"home_team_id" yaml:"home_team_id"`
	AwayTeamID int       `json:"away_team_id" yaml:"away_team_id"`
	HomeLineup []*Player `json:"home_lineup" yaml:"home_lineup"`
	AwayLineup []*Player `json:"away_lineup" yaml:"away_lineup"`
}

// WeekSource supplies per-week data that is not part of the static snapshot.
type WeekSource interface {
	BoxScores(ctx context.Context, week int) ([]BoxScore, error)
	FreeAgents(ctx context.Context, week, size int) ([]*Player, error)
}

// League is an immutable league snapshot consumed by the simulator.
type League struct {
	LeagueID    int      `json:"league_id" yaml:"league_id"`
	Year        int      `json:"year" yaml:"year"`
	Sport       string   `json:"sport,omitempty" yaml:"sport,omitempty"`
	CurrentWeek int      `json:"current_week" yaml:"current_week"`
	Settings    Settings `json:"settings" yaml:"settings"`
	Teams       []*Team  `json:"teams" yaml:"teams"`

	Source WeekSource `json:"-" yaml:"-"`
}

// RegSeasonCount returns the regular season length, defaulting to 14.
func (l *League) RegSeasonCount() int {
	if l.Settings.RegSeasonCount > 0 {
		return l.Settings.RegSeasonCount
	}
	return 14
}

// TeamByID returns the team with the given id.
func (l *League) TeamByID(id int) (*Team, bool) {
	for _, t := range l.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// RosteredPlayers returns every rostered player across all teams.
func (l *League) RosteredPlayers() []*Player {
	var out []*Player
	for _, t := range l.Teams {
		out = append(out, t.Roster...)
	}
	return out
}

// BoxScores delegates to the league source; no source means no box scores.
func (l *League) BoxScores(ctx context.Context, week int) ([]BoxScore, error) {
	if l.Source == nil {
		return nil, nil
	}
	return l.Source.BoxScores(ctx, week)
}

// FreeAgents delegates to the league source; no source means no free agents.
func (l *League) FreeAgents(ctx context.Context, week, size int) ([]*Player, error) {
	if l.Source == nil {
		return nil, nil
	}
	return l.Source.FreeAgents(ctx, week, size)
}
