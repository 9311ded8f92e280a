package domain

import "strings"

// Positions
const (
	PositionQB  = "QB"
	PositionRB  = "RB"
	PositionWR  = "WR"
	PositionTE  = "TE"
	PositionK   = "K"
	PositionDST = "D/ST"
)

// SlotFlex accepts any of RB, WR, TE.
const SlotFlex = "FLEX"

// RosterPositions lists the positions tracked in roster composition.
var RosterPositions = []string{PositionQB, PositionRB, PositionWR, PositionTE, PositionK, PositionDST}

// StarterSlots is the fixed lineup fill order.
var StarterSlots = []string{
	PositionQB, PositionRB, PositionRB, PositionWR, PositionWR,
	PositionTE, SlotFlex, PositionK, PositionDST,
}

var flexPositions = map[string]struct{}{
	PositionRB: {},
	PositionWR: {},
	PositionTE: {},
}

var benchSlots = map[string]struct{}{
	"":      {},
	"BE":    {},
	"BENCH": {},
	"IR":    {},
	"FA":    {},
}

// Injury statuses
const (
	StatusNone         = "NONE"
	StatusActive       = "ACTIVE"
	StatusQuestionable = "QUESTIONABLE"
	StatusDoubtful     = "DOUBTFUL"
	StatusOut          = "OUT"
	StatusIR           = "IR"
	StatusProbable     = "P"
	StatusSuspension   = "SUSPENSION"
)

// NormalizeStatus upper-cases and trims an injury status; blank becomes NONE.
func NormalizeStatus(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return StatusNone
	}
	return s
}

// IsHealthy reports whether a normalized status means fully available.
func IsHealthy(status string) bool {
	return status == StatusNone || status == StatusActive || status == ""
}

// IsOutLike reports whether a normalized status removes the player from games.
func IsOutLike(status string) bool {
	switch status {
	case StatusOut, StatusDoubtful, StatusIR, StatusSuspension:
		return true
	}
	return false
}
