package reporting

import "time"

// OddsReport is a rendered view of one simulation run.
type OddsReport struct {
	GeneratedAt    time.Time
	LeagueID       int
	Year           int
	NumSimulations int
	RatingsSource  string
	AlphaMode      bool

	// Rows sorted by championship odds DESC, then playoff odds DESC, then team_id ASC
	Rows []OddsRow
}

// OddsRow represents one team in the odds table.
type OddsRow struct {
	TeamID           int
	TeamName         string
	AvgWins          float64
	PlayoffOdds      float64 // percent
	ChampionshipOdds float64 // percent
}

// HistoryReport lists the stored A/B runs of one league team.
type HistoryReport struct {
	GeneratedAt time.Time
	LeagueID    int
	TeamID      int

	// Runs newest first
	Runs []HistoryRow
}

// HistoryRow summarizes one stored A/B run.
type HistoryRow struct {
	RunID           string
	CreatedAt       time.Time
	Profile         string
	DecisionStatus  string
	Seeds           int
	SuccessfulSeeds int
	MeanWeeklyLift  float64
	ConfigHash      string
	GitSHA          string
}
