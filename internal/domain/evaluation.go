package domain

// Seed run statuses.
const (
	SeedStatusOK    = "ok"
	SeedStatusError = "error"
)

// SeedResult is the outcome of one baseline-vs-alpha seed pair.
type SeedResult struct {
	RunID                string  `json:"run_id,omitempty"`
	Seed                 int     `json:"seed"`
	WeeklyPointsLift     float64 `json:"weekly_points_lift"`
	PlayoffOddsLift      float64 `json:"playoff_odds_lift"`
	ChampionshipOddsLift float64 `json:"championship_odds_lift"`
	CalibrationBrier     float64 `json:"calibration_brier"`
	Status               string  `json:"status"`
	Error                string  `json:"error"`
}

// OK reports whether the seed completed successfully.
func (r SeedResult) OK() bool {
	return r.Status == SeedStatusOK
}
