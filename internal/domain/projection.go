package domain

// PlayerProjection is a per-week projected scoring distribution for one player.
type PlayerProjection struct {
	PlayerID   int                `json:"player_id"`
	WeeklyMean float64            `json:"weekly_mean"`
	WeeklyStd  float64            `json:"weekly_std"` // >= 2.0
	Components map[string]float64 `json:"components"`
	Confidence float64            `json:"confidence"` // [0.05, 0.99]
}

// TeamRating is a team's weekly scoring distribution.
type TeamRating struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	RosterValue float64 `json:"roster_value"`
}

// ScheduleGame is one remaining head-to-head game.
type ScheduleGame struct {
	Week  int `json:"week"`
	Team1 int `json:"team1_id"`
	Team2 int `json:"team2_id"`
}
