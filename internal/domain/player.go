package domain

import (
	"sort"
	"strings"
)

// Player is a read-only view of one rostered or free-agent player.
type Player struct {
	ID            int      `json:"player_id" yaml:"player_id"`
	Name          string   `json:"name" yaml:"name"`
	Position      string   `json:"position" yaml:"position"`
	ProTeam       string   `json:"pro_team,omitempty" yaml:"pro_team,omitempty"`
	LineupSlot    string   `json:"lineup_slot" yaml:"lineup_slot"`
	EligibleSlots []string `json:"eligible_slots,omitempty" yaml:"eligible_slots,omitempty"`

	// Baseline projections
	ProjectedTotalPoints float64 `json:"projected_total_points" yaml:"projected_total_points"`
	ProjectedAvgPoints   float64 `json:"projected_avg_points" yaml:"projected_avg_points"`
	AvgPoints            float64 `json:"avg_points" yaml:"avg_points"`

	// Health and market
	InjuryStatus   string   `json:"injury_status,omitempty" yaml:"injury_status,omitempty"`
	Injured        bool     `json:"injured,omitempty" yaml:"injured,omitempty"`
	PercentStarted *float64 `json:"percent_started,omitempty" yaml:"percent_started,omitempty"`
	ProPosRank     float64  `json:"pro_pos_rank,omitempty" yaml:"pro_pos_rank,omitempty"`

	// WeeklyPoints is sparse: only weeks with a recorded score are present.
	WeeklyPoints map[int]float64 `json:"weekly_points,omitempty" yaml:"weekly_points,omitempty"`
}

// NormalizedPosition returns the upper-cased position.
func (p *Player) NormalizedPosition() string {
	return strings.ToUpper(strings.TrimSpace(p.Position))
}

// NormalizedStatus returns the upper-cased injury status, NONE when blank.
func (p *Player) NormalizedStatus() string {
	return NormalizeStatus(p.InjuryStatus)
}

// StartedPct returns the market started percentage, zero when unknown.
func (p *Player) StartedPct() float64 {
	if p.PercentStarted == nil {
		return 0
	}
	return *p.PercentStarted
}

// WeeklyPrior is the per-week baseline used by the projection model:
// projected average, else season total over 14 weeks, else raw average.
func (p *Player) WeeklyPrior() float64 {
	if p.ProjectedAvgPoints > 0 {
		return p.ProjectedAvgPoints
	}
	if p.ProjectedTotalPoints > 0 {
		return p.ProjectedTotalPoints / 14.0
	}
	if p.AvgPoints > 0 {
		return p.AvgPoints
	}
	return 0
}

// WeeklyBaseline is like WeeklyPrior but divides the season total by the
// league's regular-season length.
func (p *Player) WeeklyBaseline(regGames int) float64 {
	if p.ProjectedAvgPoints > 0 {
		return p.ProjectedAvgPoints
	}
	if p.ProjectedTotalPoints > 0 {
		return p.ProjectedTotalPoints / float64(max(1, regGames))
	}
	return p.AvgPoints
}

// SeasonProjection returns projected season points:
// total, else avg*regGames, else rawavg*regGames, else 0.
func (p *Player) SeasonProjection(regGames int) float64 {
	switch {
	case p.ProjectedTotalPoints > 0:
		return p.ProjectedTotalPoints
	case p.ProjectedAvgPoints > 0:
		return p.ProjectedAvgPoints * float64(regGames)
	case p.AvgPoints > 0:
		return p.AvgPoints * float64(regGames)
	}
	return 0
}

// RecentPoints returns recorded weekly points, most recent week first.
// Weeks <= 0 and weeks after throughWeek (when throughWeek > 0) are skipped.
// A limit <= 0 returns every qualifying week.
func (p *Player) RecentPoints(limit, throughWeek int) []float64 {
	weeks := make([]int, 0, len(p.WeeklyPoints))
	for w := range p.WeeklyPoints {
		if w <= 0 {
			continue
		}
		if throughWeek > 0 && w > throughWeek {
			continue
		}
		weeks = append(weeks, w)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(weeks)))
	if limit > 0 && len(weeks) > limit {
		weeks = weeks[:limit]
	}

	points := make([]float64, len(weeks))
	for i, w := range weeks {
		points[i] = p.WeeklyPoints[w]
	}
	return points
}

// IsStarter reports whether the player's lineup slot is an active one.
func (p *Player) IsStarter() bool {
	_, bench := benchSlots[strings.ToUpper(strings.TrimSpace(p.LineupSlot))]
	return !bench
}

// EligibleFor reports whether the player can fill slot.
func (p *Player) EligibleFor(slot string) bool {
	pos := p.NormalizedPosition()
	if slot == SlotFlex {
		_, ok := flexPositions[pos]
		return ok
	}
	if pos == slot {
		return true
	}
	for _, s := range p.EligibleSlots {
		if strings.ToUpper(s) == slot {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p *Player) Clone() *Player {
	c := *p
	if p.EligibleSlots != nil {
		c.EligibleSlots = append([]string(nil), p.EligibleSlots...)
	}
	if p.PercentStarted != nil {
		v := *p.PercentStarted
		c.PercentStarted = &v
	}
	if p.WeeklyPoints != nil {
		c.WeeklyPoints = make(map[int]float64, len(p.WeeklyPoints))
		for k, v := range p.WeeklyPoints {
			c.WeeklyPoints[k] = v
		}
	}
	return &c
}
