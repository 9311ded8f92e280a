package simulation

import (
	"context"
	"math"
	"sort"
	"time"

	"fantasy-alpha-lab/internal/observability"
)

// Ratings sources reported in RunMeta.
const (
	RatingsSourceBaseline = "baseline"
	RatingsSourceAlpha    = "alpha"
)

// TeamOutcome aggregates one team's results across all iterations.
type TeamOutcome struct {
	TotalWins        int     `json:"wins"`
	Playoffs         int     `json:"playoffs"`
	Championships    int     `json:"championship"`
	AvgWins          float64 `json:"avg_wins"`
	PlayoffOdds      float64 `json:"playoff_odds"`      // percent
	ChampionshipOdds float64 `json:"championship_odds"` // percent
}

// RunMeta describes how a run was produced.
type RunMeta struct {
	AlphaMode      bool   `json:"alpha_mode"`
	NumSimulations int    `json:"num_simulations"`
	RatingsSource  string `json:"ratings_source"`
}

// RunResult is the aggregate output of RunSimulations.
type RunResult struct {
	Teams map[int]TeamOutcome `json:"teams"`
	Meta  RunMeta             `json:"_meta"`
}

// TeamIDs returns the team ids in ascending order.
func (r *RunResult) TeamIDs() []int {
	ids := make([]int, 0, len(r.Teams))
	for id := range r.Teams {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MeanPlayoffOdds averages playoff odds across teams.
func (r *RunResult) MeanPlayoffOdds() float64 {
	if len(r.Teams) == 0 {
		return 0
	}
	var sum float64
	for _, id := range r.TeamIDs() {
		sum += r.Teams[id].PlayoffOdds
	}
	return sum / float64(len(r.Teams))
}

// MeanChampionshipOdds averages championship odds across teams.
func (r *RunResult) MeanChampionshipOdds() float64 {
	if len(r.Teams) == 0 {
		return 0
	}
	var sum float64
	for _, id := range r.TeamIDs() {
		sum += r.Teams[id].ChampionshipOdds
	}
	return sum / float64(len(r.Teams))
}

// SimulateGame draws one score per team and reports whether team1 won.
// Team2 wins ties. A nil ratings map uses the baseline ratings.
func (s *Simulator) SimulateGame(team1, team2 int, ratings Ratings) bool {
	if ratings == nil {
		ratings = s.ratings
	}
	r1, r2 := ratings[team1], ratings[team2]
	score1 := s.rng.NormFloat64()*r1.Std + r1.Mean
	score2 := s.rng.NormFloat64()*r2.Std + r2.Mean
	return score1 > score2
}

// SimulateSeason plays every remaining game once and returns final win totals.
func (s *Simulator) SimulateSeason(ratings Ratings) map[int]int {
	wins := make(map[int]int, len(s.league.Teams))
	for _, t := range s.league.Teams {
		if s.preseason {
			wins[t.ID] = 0
		} else {
			wins[t.ID] = t.Wins
		}
	}
	for _, g := range s.schedule {
		if s.SimulateGame(g.Team1, g.Team2, ratings) {
			wins[g.Team1]++
		} else {
			wins[g.Team2]++
		}
	}
	return wins
}

// SimulatePlayoffs runs a single-elimination bracket pairing consecutive
// seeds; an unpaired last seed gets a bye. Returns the champion.
func (s *Simulator) SimulatePlayoffs(seeds []int, ratings Ratings) int {
	if len(seeds) == 0 {
		return 0
	}
	teams := append([]int(nil), seeds...)
	for len(teams) > 1 {
		winners := make([]int, 0, (len(teams)+1)/2)
		for i := 0; i < len(teams); i += 2 {
			if i+1 >= len(teams) {
				winners = append(winners, teams[i])
				continue
			}
			if s.SimulateGame(teams[i], teams[i+1], ratings) {
				winners = append(winners, teams[i])
			} else {
				winners = append(winners, teams[i+1])
			}
		}
		teams = winners
	}
	return teams[0]
}

// standings ranks teams by wins, breaking ties with a fresh random draw
// per team. Draws happen in league team order.
func (s *Simulator) standings(wins map[int]int) []int {
	type entry struct {
		id       int
		wins     int
		tiebreak float64
	}
	entries := make([]entry, 0, len(s.league.Teams))
	for _, t := range s.league.Teams {
		w, ok := wins[t.ID]
		if !ok {
			continue
		}
		entries = append(entries, entry{id: t.ID, wins: w, tiebreak: s.rng.Float64()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].wins != entries[j].wins {
			return entries[i].wins > entries[j].wins
		}
		return entries[i].tiebreak > entries[j].tiebreak
	})

	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// RunSimulations runs the configured number of seasons. In alpha mode the
// ratings are first blended with each team's optimized alpha lineup.
func (s *Simulator) RunSimulations(ctx context.Context) (*RunResult, error) {
	if s.alphaMode {
		ratings, err := s.AlphaTeamRatings(ctx)
		if err != nil {
			return nil, err
		}
		return s.run(ctx, ratings, RatingsSourceAlpha)
	}
	return s.run(ctx, s.ratings, RatingsSourceBaseline)
}

// RunSimulationsWithRatings runs the configured number of seasons with
// explicit ratings.
func (s *Simulator) RunSimulationsWithRatings(ctx context.Context, ratings Ratings) (*RunResult, error) {
	if ratings == nil {
		ratings = s.ratings
	}
	return s.run(ctx, ratings, RatingsSourceBaseline)
}

// run checks ctx once up front; a started run completes every iteration.
func (s *Simulator) run(ctx context.Context, ratings Ratings, source string) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	counts := make(map[int]*TeamOutcome, len(s.league.Teams))
	for _, t := range s.league.Teams {
		counts[t.ID] = &TeamOutcome{}
	}
	spots := s.playoffSpots()

	for i := 0; i < s.numSimulations; i++ {
		season := s.SimulateSeason(ratings)
		for id, w := range season {
			counts[id].TotalWins += w
		}

		ranked := s.standings(season)
		playoffTeams := ranked[:min(spots, len(ranked))]
		for _, id := range playoffTeams {
			counts[id].Playoffs++
		}
		if len(playoffTeams) >= 2 {
			champ := s.SimulatePlayoffs(playoffTeams, ratings)
			counts[champ].Championships++
		}
	}

	n := float64(s.numSimulations)
	result := &RunResult{
		Teams: make(map[int]TeamOutcome, len(counts)),
		Meta: RunMeta{
			AlphaMode:      s.alphaMode,
			NumSimulations: s.numSimulations,
			RatingsSource:  source,
		},
	}
	for id, c := range counts {
		c.AvgWins = float64(c.TotalWins) / n
		c.PlayoffOdds = float64(c.Playoffs) / n * 100
		c.ChampionshipOdds = float64(c.Championships) / n * 100
		result.Teams[id] = *c
	}

	elapsed := time.Since(start)
	observability.RecordSimulationRun(source, s.numSimulations, elapsed)
	s.logger.Debug().
		Str("ratings_source", source).
		Int("num_simulations", s.numSimulations).
		Dur("elapsed", elapsed).
		Msg("simulation run complete")
	return result, nil
}

// AlphaTeamRatings blends each team's optimized alpha lineup score into a
// copy of its baseline rating. Outside alpha mode it returns the baseline copy.
func (s *Simulator) AlphaTeamRatings(ctx context.Context) (Ratings, error) {
	ratings := s.ratings.Clone()
	if !s.alphaMode {
		return ratings, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blend := math.Max(0, math.Min(1, s.alphaConfig.AlphaBlend))
	week := s.currentWeek()
	for _, team := range s.league.Teams {
		lineup := s.OptimizeLineup(ctx, team, week)
		score := s.LineupScore(ctx, lineup, week)
		r := ratings[team.ID]
		r.Mean = blend*score.Mean + (1-blend)*r.Mean
		r.Std = math.Max(minAlphaStd, blend*score.Std+(1-blend)*r.Std)
		ratings[team.ID] = r
	}
	return ratings, nil
}
