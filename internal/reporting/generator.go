// Package reporting renders simulation odds and stored A/B run history.
package reporting

import (
	"context"
	"sort"
	"time"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/simulation"
	"fantasy-alpha-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore  storage.ABRunStore
	seedStore storage.SeedMetricStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.ABRunStore, seedStore storage.SeedMetricStore) *Generator {
	return &Generator{
		runStore:  runStore,
		seedStore: seedStore,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateHistory lists every stored run for a league team, newest first.
// Seed rows are optional: a run without stored seeds reports zero successes.
func (g *Generator) GenerateHistory(ctx context.Context, leagueID, teamID int) (*HistoryReport, error) {
	runs, err := g.runStore.ListByLeague(ctx, leagueID, teamID)
	if err != nil {
		return nil, err
	}

	rows := make([]HistoryRow, 0, len(runs))
	for _, run := range runs {
		row := HistoryRow{
			RunID:          run.RunID,
			CreatedAt:      run.CreatedAt,
			Profile:        run.Profile,
			DecisionStatus: run.DecisionStatus,
			Seeds:          run.Seeds,
			ConfigHash:     run.ConfigHash,
			GitSHA:         run.GitSHA,
		}
		if g.seedStore != nil {
			seeds, err := g.seedStore.GetByRunID(ctx, run.RunID)
			if err != nil {
				return nil, err
			}
			row.SuccessfulSeeds, row.MeanWeeklyLift = seedStats(seeds)
		}
		rows = append(rows, row)
	}

	return &HistoryReport{
		GeneratedAt: g.now(),
		LeagueID:    leagueID,
		TeamID:      teamID,
		Runs:        rows,
	}, nil
}

// GenerateOdds builds an odds report from a simulation run.
func (g *Generator) GenerateOdds(league *domain.League, result *simulation.RunResult) *OddsReport {
	report := &OddsReport{GeneratedAt: g.now()}
	if league != nil {
		report.LeagueID = league.LeagueID
		report.Year = league.Year
	}
	if result == nil {
		return report
	}
	report.NumSimulations = result.Meta.NumSimulations
	report.RatingsSource = result.Meta.RatingsSource
	report.AlphaMode = result.Meta.AlphaMode

	for _, id := range result.TeamIDs() {
		outcome := result.Teams[id]
		row := OddsRow{
			TeamID:           id,
			AvgWins:          outcome.AvgWins,
			PlayoffOdds:      outcome.PlayoffOdds,
			ChampionshipOdds: outcome.ChampionshipOdds,
		}
		if league != nil {
			if team, ok := league.TeamByID(id); ok {
				row.TeamName = team.Name
			}
		}
		report.Rows = append(report.Rows, row)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.ChampionshipOdds != b.ChampionshipOdds {
			return a.ChampionshipOdds > b.ChampionshipOdds
		}
		if a.PlayoffOdds != b.PlayoffOdds {
			return a.PlayoffOdds > b.PlayoffOdds
		}
		return a.TeamID < b.TeamID
	})
	return report
}

// seedStats counts successful seeds and averages their weekly lift.
func seedStats(seeds []*domain.SeedResult) (int, float64) {
	ok := 0
	var sum float64
	for _, s := range seeds {
		if s == nil || !s.OK() {
			continue
		}
		ok++
		sum += s.WeeklyPointsLift
	}
	if ok == 0 {
		return 0, 0
	}
	return ok, sum / float64(ok)
}
