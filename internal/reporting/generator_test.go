package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/simulation"
	"fantasy-alpha-lab/internal/storage/memory"
)

func fixedClock() time.Time {
	return time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
}

func setupTestData(t *testing.T) (*memory.ABRunStore, *memory.SeedMetricStore) {
	ctx := context.Background()

	runStore := memory.NewABRunStore()
	seedStore := memory.NewSeedMetricStore()

	runs := []*domain.ABRun{
		{RunID: "ab_20241020T100000Z_aaaa0001", CreatedAt: time.Date(2024, 10, 20, 10, 0, 0, 0, time.UTC), LeagueID: 1, TeamID: 2, Profile: "quick", Seeds: 3, DecisionStatus: "inconclusive", GitSHA: "abc123"},
		{RunID: "ab_20241027T100000Z_aaaa0002", CreatedAt: time.Date(2024, 10, 27, 10, 0, 0, 0, time.UTC), LeagueID: 1, TeamID: 2, Profile: "default", Seeds: 3, DecisionStatus: "pass", GitSHA: "def456"},
		{RunID: "ab_20241027T110000Z_other", CreatedAt: time.Date(2024, 10, 27, 11, 0, 0, 0, time.UTC), LeagueID: 1, TeamID: 9, Profile: "default", Seeds: 1, DecisionStatus: "fail"},
	}
	for _, r := range runs {
		if err := runStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	seeds := []*domain.SeedResult{
		{RunID: "ab_20241027T100000Z_aaaa0002", Seed: 1, WeeklyPointsLift: 1.0, Status: domain.SeedStatusOK},
		{RunID: "ab_20241027T100000Z_aaaa0002", Seed: 2, WeeklyPointsLift: 2.0, Status: domain.SeedStatusOK},
		{RunID: "ab_20241027T100000Z_aaaa0002", Seed: 3, Status: domain.SeedStatusError, Error: "boom"},
	}
	if err := seedStore.InsertBulk(ctx, seeds); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	return runStore, seedStore
}

func TestGenerateHistory(t *testing.T) {
	runStore, seedStore := setupTestData(t)
	gen := NewGenerator(runStore, seedStore).WithClock(fixedClock)

	report, err := gen.GenerateHistory(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GenerateHistory failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixedClock())
	}
	if len(report.Runs) != 2 {
		t.Fatalf("expected 2 runs for team 2, got %d", len(report.Runs))
	}

	newest := report.Runs[0]
	if newest.RunID != "ab_20241027T100000Z_aaaa0002" {
		t.Errorf("expected newest run first, got %s", newest.RunID)
	}
	if newest.SuccessfulSeeds != 2 {
		t.Errorf("SuccessfulSeeds = %d, want 2", newest.SuccessfulSeeds)
	}
	if newest.MeanWeeklyLift != 1.5 {
		t.Errorf("MeanWeeklyLift = %v, want 1.5", newest.MeanWeeklyLift)
	}

	oldest := report.Runs[1]
	if oldest.SuccessfulSeeds != 0 || oldest.MeanWeeklyLift != 0 {
		t.Errorf("run without seed rows should report zeros, got %d/%v", oldest.SuccessfulSeeds, oldest.MeanWeeklyLift)
	}
}

func TestGenerateHistory_NoSeedStore(t *testing.T) {
	runStore, _ := setupTestData(t)
	report, err := NewGenerator(runStore, nil).WithClock(fixedClock).GenerateHistory(context.Background(), 1, 9)
	if err != nil {
		t.Fatalf("GenerateHistory failed: %v", err)
	}
	if len(report.Runs) != 1 || report.Runs[0].DecisionStatus != "fail" {
		t.Errorf("unexpected runs: %+v", report.Runs)
	}
}

func TestRenderHistoryMarkdown(t *testing.T) {
	runStore, seedStore := setupTestData(t)
	report, err := NewGenerator(runStore, seedStore).WithClock(fixedClock).GenerateHistory(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GenerateHistory failed: %v", err)
	}

	md := RenderHistoryMarkdown(report)
	for _, want := range []string{
		"# A/B Run History",
		"Generated: 2024-11-03T12:00:00Z",
		"League: 1 | Team: 2 | Runs: 2",
		"| ab_20241027T100000Z_aaaa0002 | 2024-10-27T10:00:00Z | default | pass | 2/3 | 1.5000 | def456 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}

	empty := RenderHistoryMarkdown(&HistoryReport{GeneratedAt: fixedClock()})
	if !strings.Contains(empty, "No stored runs.") {
		t.Errorf("empty history should say so:\n%s", empty)
	}
}

func TestGenerateOdds_SortsByChampionshipOdds(t *testing.T) {
	league := &domain.League{
		LeagueID: 7,
		Year:     2024,
		Teams: []*domain.Team{
			{ID: 1, Name: "Alpha"},
			{ID: 2, Name: "Bravo"},
			{ID: 3, Name: "Charlie"},
		},
	}
	result := &simulation.RunResult{
		Teams: map[int]simulation.TeamOutcome{
			1: {AvgWins: 6.5, PlayoffOdds: 40, ChampionshipOdds: 10},
			2: {AvgWins: 9.1, PlayoffOdds: 90, ChampionshipOdds: 45},
			3: {AvgWins: 7.0, PlayoffOdds: 70, ChampionshipOdds: 45},
			4: {AvgWins: 3.0, PlayoffOdds: 0, ChampionshipOdds: 0},
		},
		Meta: simulation.RunMeta{AlphaMode: true, NumSimulations: 500, RatingsSource: simulation.RatingsSourceAlpha},
	}

	report := NewGenerator(nil, nil).WithClock(fixedClock).GenerateOdds(league, result)

	wantOrder := []int{2, 3, 1, 4}
	if len(report.Rows) != len(wantOrder) {
		t.Fatalf("expected %d rows, got %d", len(wantOrder), len(report.Rows))
	}
	for i, id := range wantOrder {
		if report.Rows[i].TeamID != id {
			t.Errorf("row %d team = %d, want %d", i, report.Rows[i].TeamID, id)
		}
	}
	if report.Rows[0].TeamName != "Bravo" || report.Rows[3].TeamName != "" {
		t.Errorf("unexpected team names: %q, %q", report.Rows[0].TeamName, report.Rows[3].TeamName)
	}

	md := RenderOddsMarkdown(report)
	for _, want := range []string{
		"League: 7 | Year: 2024 | Mode: alpha | Ratings: alpha | Simulations: 500",
		"| Bravo | 9.10 | 90.0 | 45.0 |",
		"| team_4 | 3.00 | 0.0 | 0.0 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestGenerateOdds_NilResult(t *testing.T) {
	report := NewGenerator(nil, nil).WithClock(fixedClock).GenerateOdds(nil, nil)
	if len(report.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(report.Rows))
	}
	if !strings.Contains(RenderOddsMarkdown(report), "No teams simulated.") {
		t.Error("empty odds report should say so")
	}
}

func TestRenderSeedCSV(t *testing.T) {
	rows := []domain.SeedResult{
		{Seed: 1, WeeklyPointsLift: 1.25, PlayoffOddsLift: 2.5, ChampionshipOddsLift: -0.5, CalibrationBrier: 0.1, Status: domain.SeedStatusOK},
		{Seed: 2, Status: domain.SeedStatusError, Error: `bad "input", retry`},
	}

	got := RenderSeedCSV(rows)
	want := SeedCSVHeader + "\n" +
		"1,1.250000,2.500000,-0.500000,0.100000,ok,\n" +
		`2,0.000000,0.000000,0.000000,0.000000,error,"bad ""input"", retry"` + "\n"
	if got != want {
		t.Errorf("RenderSeedCSV mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderOddsCSV(t *testing.T) {
	got := RenderOddsCSV([]OddsRow{{TeamID: 3, TeamName: "Team, Inc", AvgWins: 7, PlayoffOdds: 55.5, ChampionshipOdds: 12.25}})
	want := "team_id,team_name,avg_wins,playoff_odds,championship_odds\n" +
		`3,"Team, Inc",7.0000,55.5000,12.2500` + "\n"
	if got != want {
		t.Errorf("RenderOddsCSV mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}
