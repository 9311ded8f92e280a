package domain

import (
	"encoding/json"
	"time"
)

// ABRun is the persisted record of one A/B evaluation run.
// Manifest, Summary and Decision hold the same JSON documents written to
// the run's artifact directory.
type ABRun struct {
	RunID          string          `json:"run_id"`
	CreatedAt      time.Time       `json:"created_at"`
	LeagueID       int             `json:"league_id"`
	TeamID         int             `json:"team_id"`
	Year           int             `json:"year"`
	Profile        string          `json:"profile"`
	Seeds          int             `json:"seeds"`
	ConfigHash     string          `json:"config_hash"`
	GitSHA         string          `json:"git_sha"`
	DecisionStatus string          `json:"decision_status"`
	Manifest       json.RawMessage `json:"manifest"`
	Summary        json.RawMessage `json:"summary"`
	Decision       json.RawMessage `json:"decision"`
}
