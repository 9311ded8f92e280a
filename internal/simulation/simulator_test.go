package simulation

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync/atomic"
	"testing"

	"fantasy-alpha-lab/internal/domain"
)

func ptrInt64(i int64) *int64 {
	return &i
}

type rosterSpot struct {
	position string
	slot     string
	total    float64
}

// 1400 season points before scaling.
var testRoster = []rosterSpot{
	{domain.PositionQB, "QB", 280},
	{domain.PositionRB, "RB", 210},
	{domain.PositionRB, "RB", 170},
	{domain.PositionWR, "WR", 200},
	{domain.PositionWR, "WR", 160},
	{domain.PositionTE, "TE", 120},
	{domain.PositionK, "K", 100},
	{domain.PositionDST, "D/ST", 100},
	{domain.PositionRB, "BE", 60},
}

func makeRoster(teamID int, scale float64) []*domain.Player {
	out := make([]*domain.Player, len(testRoster))
	for i, spot := range testRoster {
		out[i] = &domain.Player{
			ID:                   teamID*100 + i + 1,
			Name:                 spot.position + "-" + string(rune('A'+teamID-1)) + string(rune('0'+i)),
			Position:             spot.position,
			LineupSlot:           spot.slot,
			ProjectedTotalPoints: spot.total * scale,
		}
	}
	return out
}

// newTestLeague builds a four-team round robin over six weeks with the
// first three weeks decided.
func newTestLeague() *domain.League {
	schedules := map[int][]int{
		1: {2, 3, 4, 2, 3, 4},
		2: {1, 4, 3, 1, 4, 3},
		3: {4, 1, 2, 4, 1, 2},
		4: {3, 2, 1, 3, 2, 1},
	}
	outcomes := map[int][]string{
		1: {"W", "W", "W", "U", "U", "U"},
		2: {"L", "W", "L", "U", "U", "U"},
		3: {"W", "L", "W", "U", "U", "U"},
		4: {"L", "L", "L", "U", "U", "U"},
	}
	scores := map[int][]float64{
		1: {100, 110, 120, 0, 0, 0},
		2: {90, 105, 95, 0, 0, 0},
		3: {98, 92, 101, 0, 0, 0},
		4: {85, 88, 80, 0, 0, 0},
	}
	wins := map[int]int{1: 3, 2: 1, 3: 2, 4: 0}

	league := &domain.League{
		LeagueID:    77,
		Year:        2024,
		CurrentWeek: 4,
		Settings:    domain.Settings{RegSeasonCount: 14, PlayoffTeamCount: 2},
	}
	for id := 1; id <= 4; id++ {
		league.Teams = append(league.Teams, &domain.Team{
			ID:       id,
			Name:     "Team " + string(rune('A'+id-1)),
			Wins:     wins[id],
			Losses:   3 - wins[id],
			Scores:   scores[id],
			Outcomes: outcomes[id],
			Schedule: schedules[id],
			Roster:   makeRoster(id, 1+float64(id-1)*0.05),
		})
	}
	return league
}

func newTestSimulator(t *testing.T, opts Options) *Simulator {
	t.Helper()
	if opts.League == nil {
		opts.League = newTestLeague()
	}
	if opts.Seed == nil {
		opts.Seed = ptrInt64(42)
	}
	if opts.NumSimulations == 0 {
		opts.NumSimulations = 300
	}
	sim, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return sim
}

type fakeSource struct {
	boxScores  []domain.BoxScore
	boxErr     error
	freeAgents []*domain.Player
	faErr      error
}

func (f *fakeSource) BoxScores(context.Context, int) ([]domain.BoxScore, error) {
	return f.boxScores, f.boxErr
}

func (f *fakeSource) FreeAgents(_ context.Context, _, size int) ([]*domain.Player, error) {
	if f.faErr != nil {
		return nil, f.faErr
	}
	if size >= 0 && len(f.freeAgents) > size {
		return f.freeAgents[:size], nil
	}
	return f.freeAgents, nil
}

type fakeProvider struct {
	adjustments map[int]float64
	injuries    map[int]string
	matchups    map[int]float64
	calls       atomic.Int32
}

func (f *fakeProvider) PlayerAdjustments(context.Context, *domain.League, int) (map[int]float64, error) {
	f.calls.Add(1)
	return f.adjustments, nil
}

func (f *fakeProvider) InjuryOverrides(context.Context, *domain.League, int) (map[int]string, error) {
	return f.injuries, nil
}

func (f *fakeProvider) MatchupOverrides(context.Context, *domain.League, int) (map[int]float64, error) {
	return f.matchups, nil
}

type failingProvider struct{}

func (failingProvider) PlayerAdjustments(context.Context, *domain.League, int) (map[int]float64, error) {
	return nil, errors.New("provider down")
}

func (failingProvider) InjuryOverrides(context.Context, *domain.League, int) (map[int]string, error) {
	return nil, errors.New("provider down")
}

func (failingProvider) MatchupOverrides(context.Context, *domain.League, int) (map[int]float64, error) {
	return nil, errors.New("provider down")
}

func TestNew_RejectsNonFootballLeague(t *testing.T) {
	league := newTestLeague()
	league.Sport = "nba"
	if _, err := New(Options{League: league}); !errors.Is(err, ErrUnsupportedLeague) {
		t.Errorf("expected ErrUnsupportedLeague, got %v", err)
	}

	league = newTestLeague()
	league.Teams[2].Scores = nil
	league.Teams[2].Outcomes = nil
	if _, err := New(Options{League: league}); !errors.Is(err, ErrUnsupportedLeague) {
		t.Errorf("expected ErrUnsupportedLeague for missing scores, got %v", err)
	}

	league = newTestLeague()
	league.Teams[1].Scores = nil
	if _, err := New(Options{League: league}); !errors.Is(err, ErrUnsupportedLeague) {
		t.Errorf("expected ErrUnsupportedLeague for scores-only gap, got %v", err)
	}

	league = newTestLeague()
	league.Teams[3].Outcomes = nil
	if _, err := New(Options{League: league}); !errors.Is(err, ErrUnsupportedLeague) {
		t.Errorf("expected ErrUnsupportedLeague for outcomes-only gap, got %v", err)
	}

	if _, err := New(Options{}); !errors.Is(err, ErrUnsupportedLeague) {
		t.Errorf("expected ErrUnsupportedLeague for nil league, got %v", err)
	}

	league = newTestLeague()
	league.Sport = "NFL"
	if _, err := New(Options{League: league}); err != nil {
		t.Errorf("NFL league rejected: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	sim, err := New(Options{League: newTestLeague()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if sim.NumSimulations() != 1000 {
		t.Errorf("NumSimulations = %d, want 1000", sim.NumSimulations())
	}
	if sim.ratingsBlend != 0.65 {
		t.Errorf("ratingsBlend = %v, want 0.65", sim.ratingsBlend)
	}

	blend := 1.7
	sim, err = New(Options{League: newTestLeague(), RatingsBlend: &blend})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if sim.ratingsBlend != 1.0 {
		t.Errorf("ratingsBlend = %v, want clamped 1.0", sim.ratingsBlend)
	}

	if _, err := New(Options{League: newTestLeague(), NumSimulations: -1}); err == nil {
		t.Error("expected error for negative simulations")
	}
}

func TestSchedule_RemainingGamesOnly(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	games := sim.Schedule()

	if len(games) != 6 {
		t.Fatalf("expected 6 remaining games, got %d", len(games))
	}

	seen := make(map[gameKey]bool)
	for i, g := range games {
		if g.Week < 4 {
			t.Errorf("game %d in decided week %d", i, g.Week)
		}
		if i > 0 && games[i-1].Week > g.Week {
			t.Errorf("schedule not sorted by week at %d", i)
		}
		key := gameKey{week: g.Week, lo: min(g.Team1, g.Team2), hi: max(g.Team1, g.Team2)}
		if seen[key] {
			t.Errorf("duplicate game %+v", g)
		}
		seen[key] = true
	}
}

func TestSchedule_PreseasonIncludesAllGames(t *testing.T) {
	sim := newTestSimulator(t, Options{Preseason: true})
	if got := len(sim.Schedule()); got != 12 {
		t.Errorf("expected 12 games in preseason, got %d", got)
	}
}

func TestSchedule_SkipsSelfAndUnknownOpponents(t *testing.T) {
	league := newTestLeague()
	league.Teams[0].Schedule[4] = 1  // self
	league.Teams[0].Schedule[5] = 99 // unknown
	sim := newTestSimulator(t, Options{League: league})

	for _, g := range sim.Schedule() {
		if g.Team1 == g.Team2 {
			t.Errorf("self game scheduled: %+v", g)
		}
		if g.Team1 == 99 || g.Team2 == 99 {
			t.Errorf("unknown opponent scheduled: %+v", g)
		}
	}
}

func TestTeamRatings_BlendsObservedAndPrior(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	r := sim.TeamRatings()[1]

	// prior 1400/14 = 100, observed mean 110, sample std 10
	want := 0.65*110 + 0.35*100
	if math.Abs(r.Mean-want) > 1e-9 {
		t.Errorf("Mean = %v, want %v", r.Mean, want)
	}
	if math.Abs(r.Std-10) > 1e-9 {
		t.Errorf("Std = %v, want 10", r.Std)
	}
	// 280*1.2 + (210+170+60)*1.1 + (200+160)*1.1 + 120*0.8 + 100*0.5 + 100*0.7
	wantValue := 336.0 + 484 + 396 + 96 + 50 + 70
	if math.Abs(r.RosterValue-wantValue) > 1e-9 {
		t.Errorf("RosterValue = %v, want %v", r.RosterValue, wantValue)
	}
}

func TestTeamRatings_Fallbacks(t *testing.T) {
	league := newTestLeague()
	team := league.Teams[3]
	team.Roster = nil
	team.Outcomes = []string{"U", "U", "U", "U", "U", "U"}
	team.PointsFor = 0

	sim := newTestSimulator(t, Options{League: league})
	r := sim.TeamRatings()[4]
	if r.Mean != 90 {
		t.Errorf("Mean = %v, want 90 fallback", r.Mean)
	}
	if math.Abs(r.Std-13.5) > 1e-9 {
		t.Errorf("Std = %v, want 15%% of mean", r.Std)
	}

	team.PointsFor = 300
	sim = newTestSimulator(t, Options{League: league})
	if got := sim.TeamRatings()[4].Mean; got != 300 {
		t.Errorf("Mean = %v, want points_for over one game", got)
	}
}

func TestTeamRatings_PreseasonUsesPrior(t *testing.T) {
	sim := newTestSimulator(t, Options{Preseason: true})
	if got := sim.TeamRatings()[1].Mean; math.Abs(got-100) > 1e-9 {
		t.Errorf("preseason Mean = %v, want prior 100", got)
	}
}

func TestTeamRatings_ReturnsCopy(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	r := sim.TeamRatings()
	r[1] = domain.TeamRating{Mean: -1}
	if sim.TeamRatings()[1].Mean == -1 {
		t.Error("TeamRatings exposed internal map")
	}
}

func TestSimulateGame_TieGoesToTeam2(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	ratings := Ratings{1: {Mean: 100}, 2: {Mean: 100}}
	if sim.SimulateGame(1, 2, ratings) {
		t.Error("exact tie should go to team2")
	}

	ratings = Ratings{1: {Mean: 1000, Std: 1}, 2: {Mean: 0, Std: 1}}
	if !sim.SimulateGame(1, 2, ratings) {
		t.Error("dominant team1 should win")
	}
}

func TestSimulateSeason_AccumulatesOnDecidedWins(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	wins := sim.SimulateSeason(nil)

	total := 0
	for _, w := range wins {
		total += w
	}
	if total != 6+6 {
		t.Errorf("total wins = %d, want 12", total)
	}
	if wins[1] < 3 {
		t.Errorf("team 1 lost decided wins: %d", wins[1])
	}
}

func TestSimulatePlayoffs_Bye(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	ratings := Ratings{
		1: {Mean: 0, Std: 1},
		2: {Mean: 10, Std: 1},
		3: {Mean: 1000, Std: 1},
	}
	if champ := sim.SimulatePlayoffs([]int{1, 2, 3}, ratings); champ != 3 {
		t.Errorf("champion = %d, want 3 (bye then win)", champ)
	}
	if champ := sim.SimulatePlayoffs([]int{4}, nil); champ != 4 {
		t.Errorf("single seed champion = %d, want 4", champ)
	}
}

func TestRunSimulations_Deterministic(t *testing.T) {
	ctx := context.Background()

	a, err := newTestSimulator(t, Options{Seed: ptrInt64(7)}).RunSimulations(ctx)
	if err != nil {
		t.Fatalf("RunSimulations failed: %v", err)
	}
	b, err := newTestSimulator(t, Options{Seed: ptrInt64(7)}).RunSimulations(ctx)
	if err != nil {
		t.Fatalf("RunSimulations failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different results")
	}

	c, err := newTestSimulator(t, Options{Seed: ptrInt64(8)}).RunSimulations(ctx)
	if err != nil {
		t.Fatalf("RunSimulations failed: %v", err)
	}
	if reflect.DeepEqual(a.Teams, c.Teams) {
		t.Error("different seeds produced identical results")
	}
}

func TestRunSimulations_ProbabilityBounds(t *testing.T) {
	sim := newTestSimulator(t, Options{NumSimulations: 500})
	res, err := sim.RunSimulations(context.Background())
	if err != nil {
		t.Fatalf("RunSimulations failed: %v", err)
	}
	if len(res.Teams) != 4 {
		t.Fatalf("expected 4 teams, got %d", len(res.Teams))
	}

	var playoffSum, champSum, winSum float64
	for id, o := range res.Teams {
		if o.PlayoffOdds < 0 || o.PlayoffOdds > 100 {
			t.Errorf("team %d playoff odds out of range: %v", id, o.PlayoffOdds)
		}
		if o.ChampionshipOdds < 0 || o.ChampionshipOdds > 100 {
			t.Errorf("team %d championship odds out of range: %v", id, o.ChampionshipOdds)
		}
		if o.ChampionshipOdds > o.PlayoffOdds {
			t.Errorf("team %d championship odds exceed playoff odds", id)
		}
		playoffSum += o.PlayoffOdds
		champSum += o.ChampionshipOdds
		winSum += o.AvgWins
	}
	if math.Abs(playoffSum-200) > 1e-6 {
		t.Errorf("playoff odds sum = %v, want 200", playoffSum)
	}
	if math.Abs(champSum-100) > 1e-6 {
		t.Errorf("championship odds sum = %v, want 100", champSum)
	}
	if math.Abs(winSum-12) > 1e-6 {
		t.Errorf("avg wins sum = %v, want 12", winSum)
	}
	if res.Meta.RatingsSource != RatingsSourceBaseline || res.Meta.AlphaMode {
		t.Errorf("unexpected meta: %+v", res.Meta)
	}
}

func TestRunSimulations_SinglePlayoffSpotHasNoChampion(t *testing.T) {
	league := newTestLeague()
	league.Settings.PlayoffTeamCount = 1
	res, err := newTestSimulator(t, Options{League: league, NumSimulations: 50}).RunSimulations(context.Background())
	if err != nil {
		t.Fatalf("RunSimulations failed: %v", err)
	}
	for id, o := range res.Teams {
		if o.Championships != 0 {
			t.Errorf("team %d has championships with a single playoff spot", id)
		}
	}
}

func TestRunSimulations_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestSimulator(t, Options{}).RunSimulations(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunSimulations_AlphaModeUsesBlendedRatings(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator(t, Options{AlphaMode: true})

	res, err := sim.RunSimulations(ctx)
	if err != nil {
		t.Fatalf("RunSimulations failed: %v", err)
	}
	if res.Meta.RatingsSource != RatingsSourceAlpha || !res.Meta.AlphaMode {
		t.Errorf("unexpected meta: %+v", res.Meta)
	}

	alphaRatings, err := sim.AlphaTeamRatings(ctx)
	if err != nil {
		t.Fatalf("AlphaTeamRatings failed: %v", err)
	}
	base := sim.TeamRatings()
	for id, r := range alphaRatings {
		if r.Std < 6 {
			t.Errorf("team %d alpha std below floor: %v", id, r.Std)
		}
		if r.RosterValue != base[id].RosterValue {
			t.Errorf("team %d roster value changed", id)
		}
	}
	if reflect.DeepEqual(alphaRatings, base) {
		t.Error("alpha ratings identical to baseline")
	}
}

func TestAlphaTeamRatings_BaselineModeReturnsCopy(t *testing.T) {
	sim := newTestSimulator(t, Options{})
	r, err := sim.AlphaTeamRatings(context.Background())
	if err != nil {
		t.Fatalf("AlphaTeamRatings failed: %v", err)
	}
	if !reflect.DeepEqual(r, sim.TeamRatings()) {
		t.Error("baseline-mode alpha ratings should equal baseline")
	}
}
