package composite

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/feeds"
	"fantasy-alpha-lab/internal/storage/memory"
)

var testNow = time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	name  string
	env   feeds.Envelope
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(_ context.Context, _ *domain.League, _ int) (feeds.Envelope, error) {
	f.calls.Add(1)
	if f.err != nil {
		return feeds.Envelope{}, f.err
	}
	return f.env.Clone(), nil
}

func pct(v float64) *float64 { return &v }

func testLeague() *domain.League {
	player := func(id int, name, pos string, avg float64, status string) *domain.Player {
		return &domain.Player{
			ID:                 id,
			Name:               name,
			Position:           pos,
			ProTeam:            "KC",
			LineupSlot:         pos,
			ProjectedAvgPoints: avg,
			InjuryStatus:       status,
			PercentStarted:     pct(60),
			ProPosRank:         10,
			WeeklyPoints:       map[int]float64{1: avg + 2, 2: avg - 1, 3: avg + 4},
		}
	}
	return &domain.League{
		LeagueID:    77,
		Year:        2024,
		CurrentWeek: 4,
		Settings:    domain.Settings{RegSeasonCount: 14, PlayoffTeamCount: 2},
		Teams: []*domain.Team{
			{ID: 1, Name: "Alpha", Schedule: []int{2, 2, 2, 2, 2}, Roster: []*domain.Player{
				player(101, "QB One", "QB", 20, ""),
				player(102, "RB One", "RB", 14, "QUESTIONABLE"),
				player(103, "WR One", "WR", 12, ""),
			}},
			{ID: 2, Name: "Beta", Schedule: []int{1, 1, 1, 1, 1}, Roster: []*domain.Player{
				player(201, "QB Two", "QB", 18, ""),
				player(202, "RB Two", "RB", 11, "OUT"),
				player(203, "TE Two", "TE", 8, ""),
			}},
		},
	}
}

func envelopeWith(ts string, data map[string]any) feeds.Envelope {
	return feeds.Envelope{
		Data:            data,
		SourceTimestamp: ts,
		QualityFlags:    []string{feeds.FlagLiveFetch},
		Warnings:        []string{},
	}
}

func validEnvelopes(ts string) map[string]feeds.Envelope {
	return map[string]feeds.Envelope{
		feeds.FeedWeather: envelopeWith(ts, map[string]any{
			"team_weather": map[string]any{
				"1": map[string]any{"is_dome": false, "wind_mph": 18.0, "precip_prob": 0.6},
				"2": map[string]any{"is_dome": true, "wind_mph": 0.0, "precip_prob": 0.0},
			},
		}),
		feeds.FeedMarket: envelopeWith(ts, map[string]any{
			"projections":              map[string]any{"101": 22.0, "103": 14.0},
			"usage_trend":              map[string]any{"102": 0.4, "203": -0.3},
			"sentiment":                map[string]any{"101": 0.2},
			"future_schedule_strength": map[string]any{"1": 0.5},
			"ownership_by_player":      map[string]any{"101": 0.9},
		}),
		feeds.FeedOdds: envelopeWith(ts, map[string]any{
			"defense_vs_position":       map[string]any{"2": map[string]any{"QB": 1.05}},
			"spread_by_team":            map[string]any{"1": -6.5, "2": 6.5},
			"implied_total_by_team":     map[string]any{"1": 27.0, "2": 20.5},
			"schedule_strength_by_team": map[string]any{"1": 0.2},
		}),
		feeds.FeedInjuryNews: envelopeWith(ts, map[string]any{
			"injury_status":             map[string]any{"103": "DOUBTFUL"},
			"team_injuries_by_position": map[string]any{"2": map[string]any{"RB": 1.0}},
		}),
		feeds.FeedNextGenStats: envelopeWith(ts, map[string]any{
			"player_metrics": map[string]any{"102": map[string]any{"snap_share": 0.7}},
		}),
	}
}

func fetchersFrom(envs map[string]feeds.Envelope) map[string]*fakeFetcher {
	out := make(map[string]*fakeFetcher, len(envs))
	for name, env := range envs {
		out[name] = &fakeFetcher{name: name, env: env}
	}
	return out
}

func newTestProvider(t *testing.T, cfg Config, fakes map[string]*fakeFetcher, opts Options) *Provider {
	t.Helper()
	opts.Fetchers = make(map[string]feeds.Fetcher, len(fakes))
	for name, f := range fakes {
		opts.Fetchers[name] = f
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	p, err := New(cfg, opts)
	require.NoError(t, err)
	return p
}

func TestProvider_OutputsWithinCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableExtendedSignals = true
	cfg.Runtime.CanonicalContractMode = feeds.ContractOff

	adversarial := validEnvelopes("2024-10-06T10:00:00Z")
	adversarial[feeds.FeedMarket] = envelopeWith("2024-10-06T10:00:00Z", map[string]any{
		"projections":              map[string]any{"101": 1e6, "102": -1e6},
		"usage_trend":              map[string]any{"101": 1e9, "102": -1e9},
		"sentiment":                map[string]any{"101": 500.0},
		"future_schedule_strength": map[string]any{"1": 1e4, "2": -1e4},
	})
	adversarial[feeds.FeedOdds] = envelopeWith("2024-10-06T10:00:00Z", map[string]any{
		"defense_vs_position":       map[string]any{"1": map[string]any{"QB": 50.0}, "2": map[string]any{"RB": -50.0}},
		"spread_by_team":            map[string]any{"1": -300.0, "2": 300.0},
		"implied_total_by_team":     map[string]any{"1": 1e5},
		"schedule_strength_by_team": map[string]any{"1": 1e3},
		"win_probability_by_team":   map[string]any{"1": 40.0},
	})

	p := newTestProvider(t, cfg, fetchersFrom(adversarial), Options{})
	ctx := context.Background()
	league := testLeague()

	adjustments, err := p.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)
	matchups, err := p.MatchupOverrides(ctx, league, 4)
	require.NoError(t, err)

	total := cfg.Caps[CapTotalAdjustment]
	band := cfg.Caps[CapMatchupMultiplier]
	require.Len(t, adjustments, 6)
	for id, v := range adjustments {
		assert.False(t, math.IsNaN(v), "player %d", id)
		assert.GreaterOrEqual(t, v, total.Low, "player %d", id)
		assert.LessOrEqual(t, v, total.High, "player %d", id)
	}
	for id, v := range matchups {
		assert.GreaterOrEqual(t, v, band.Low, "player %d", id)
		assert.LessOrEqual(t, v, band.High, "player %d", id)
	}
}

func TestProvider_NonFiniteFeedValuesStayWithinCaps(t *testing.T) {
	values := []struct {
		name string
		v    any
	}{
		{"nan string", "NaN"},
		{"inf string", "Inf"},
		{"negative inf string", "-Inf"},
		{"non-numeric string", "abc"},
		{"nan float", math.NaN()},
		{"inf float", math.Inf(1)},
	}

	for _, mode := range []string{feeds.ContractOff, feeds.ContractWarn} {
		mode := mode
		for _, tt := range values {
			tt := tt
			t.Run(mode+"/"+tt.name, func(t *testing.T) {
				cfg := DefaultConfig()
				cfg.EnableExtendedSignals = true
				cfg.Runtime.CanonicalContractMode = mode

				envs := validEnvelopes("2024-10-06T10:00:00Z")
				envs[feeds.FeedMarket] = envelopeWith("2024-10-06T10:00:00Z", map[string]any{
					"projections":              map[string]any{"101": tt.v, "102": tt.v},
					"usage_trend":              map[string]any{"101": tt.v, "102": tt.v},
					"sentiment":                map[string]any{"101": tt.v},
					"future_schedule_strength": map[string]any{"1": tt.v},
				})
				envs[feeds.FeedOdds] = envelopeWith("2024-10-06T10:00:00Z", map[string]any{
					"spread_by_team":          map[string]any{"1": tt.v},
					"implied_total_by_team":   map[string]any{"1": tt.v},
					"win_probability_by_team": map[string]any{"1": tt.v},
				})

				p := newTestProvider(t, cfg, fetchersFrom(envs), Options{})
				ctx := context.Background()
				league := testLeague()

				adjustments, err := p.PlayerAdjustments(ctx, league, 4)
				require.NoError(t, err)
				matchups, err := p.MatchupOverrides(ctx, league, 4)
				require.NoError(t, err)

				total := cfg.Caps[CapTotalAdjustment]
				band := cfg.Caps[CapMatchupMultiplier]
				for id, v := range adjustments {
					require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "player %d adjustment %v", id, v)
					assert.GreaterOrEqual(t, v, total.Low, "player %d", id)
					assert.LessOrEqual(t, v, total.High, "player %d", id)
				}
				for id, v := range matchups {
					require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "player %d matchup %v", id, v)
					assert.GreaterOrEqual(t, v, band.Low, "player %d", id)
					assert.LessOrEqual(t, v, band.High, "player %d", id)
				}
			})
		}
	}
}

func TestProvider_InjuryOverridesAndDiagnostics(t *testing.T) {
	p := newTestProvider(t, DefaultConfig(), fetchersFrom(validEnvelopes("2024-10-06T10:00:00Z")), Options{})

	injuries, err := p.InjuryOverrides(context.Background(), testLeague(), 4)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{102: "QUESTIONABLE", 103: "DOUBTFUL", 202: "OUT"}, injuries)

	diags := p.LastDiagnostics()
	require.Contains(t, diags, 101)
	assert.Equal(t, "QB One", diags[101].Player)
	assert.Equal(t, 1, diags[101].TeamID)
	assert.Len(t, diags[101].Signals, len(BaseSignals))

	summary := p.LastSummary()
	assert.Equal(t, 6, summary.PlayersEvaluated)
	assert.Equal(t, BaseSignals, summary.ActiveSignals)
	assert.Contains(t, summary.QualityFlags, "market:live_fetch")
}

func TestProvider_SkipsNilTeamsAndPlayers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableExtendedSignals = true
	p := newTestProvider(t, cfg, fetchersFrom(validEnvelopes("2024-10-06T10:00:00Z")), Options{})

	league := testLeague()
	league.Teams[0].Roster = append(league.Teams[0].Roster, nil)
	league.Teams = append(league.Teams, nil)

	var adjustments map[int]float64
	require.NotPanics(t, func() {
		var err error
		adjustments, err = p.PlayerAdjustments(context.Background(), league, 4)
		require.NoError(t, err)
	})
	assert.Len(t, adjustments, 6)
	assert.Contains(t, adjustments, 101)
	assert.Equal(t, 6, p.LastSummary().PlayersEvaluated)
}

func TestProvider_GracefulDegradation(t *testing.T) {
	fakes := fetchersFrom(validEnvelopes("2024-10-06T10:00:00Z"))
	fakes[feeds.FeedWeather].err = errors.New("connection refused")

	p := newTestProvider(t, DefaultConfig(), fakes, Options{})
	adjustments, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)
	assert.Len(t, adjustments, 6)

	warnings := p.LastWarnings()
	found := false
	for _, w := range warnings {
		if strings.HasPrefix(w, "weather_fetch_failed") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", warnings)
	assert.Contains(t, p.LastSummary().QualityFlags, "weather:fetch_failed")
}

func TestProvider_FetchErrorWithoutDegradation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.DegradeGracefully = false
	fakes := fetchersFrom(validEnvelopes("2024-10-06T10:00:00Z"))
	fakes[feeds.FeedOdds].err = errors.New("timeout")

	p := newTestProvider(t, cfg, fakes, Options{})
	_, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.Error(t, err)

	var feedErr *FeedError
	require.ErrorAs(t, err, &feedErr)
	assert.Equal(t, feeds.FeedOdds, feedErr.Feed)
}

func TestProvider_AllFeedsUnavailable(t *testing.T) {
	fakes := map[string]*fakeFetcher{}
	for _, name := range feeds.AllFeeds {
		fakes[name] = &fakeFetcher{name: name, err: errors.New("down")}
	}
	p := newTestProvider(t, DefaultConfig(), fakes, Options{})

	adjustments, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)
	assert.Len(t, adjustments, 6)
	assert.Contains(t, p.LastWarnings(), feedsUnavailableWarning)
}

func marketMissingUsage() map[string]*fakeFetcher {
	envs := validEnvelopes("2024-10-06T10:00:00Z")
	data := envs[feeds.FeedMarket].Data
	delete(data, "usage_trend")
	return fetchersFrom(envs)
}

func TestProvider_ContractWarnDegrades(t *testing.T) {
	p := newTestProvider(t, DefaultConfig(), marketMissingUsage(), Options{})

	adjustments, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)
	assert.Len(t, adjustments, 6)

	flags := p.LastSummary().QualityFlags
	assert.Contains(t, flags, "market:contract_invalid")
	assert.Contains(t, flags, "market:contract_degraded_to_empty")
	assert.Contains(t, p.LastWarnings(), "market_contract_error:market.usage_trend_missing_or_invalid")
}

func TestProvider_ContractStrictRaises(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.CanonicalContractMode = feeds.ContractStrict
	p := newTestProvider(t, cfg, marketMissingUsage(), Options{})

	_, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	var contractErr *ContractError
	require.ErrorAs(t, err, &contractErr)
	assert.Equal(t, feeds.FeedMarket, contractErr.Feed)
	assert.Contains(t, contractErr.Violations, "market.usage_trend_missing_or_invalid")
}

func TestProvider_AsOfGuard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.AsOf = "2024-10-06T09:00:00Z"

	envs := validEnvelopes("2024-10-06T08:00:00Z")
	envs[feeds.FeedOdds] = envelopeWith("2024-10-06T10:00:00Z", envs[feeds.FeedOdds].Data)
	envs[feeds.FeedWeather] = envelopeWith("2024-10-06T09:00:00Z", envs[feeds.FeedWeather].Data)

	p := newTestProvider(t, cfg, fetchersFrom(envs), Options{})
	_, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)

	flags := p.LastSummary().QualityFlags
	assert.Contains(t, flags, "odds:as_of_violation")
	assert.NotContains(t, flags, "weather:as_of_violation")
	assert.NotContains(t, flags, "market:as_of_violation")
	assert.Contains(t, p.LastWarnings(), "odds_as_of_violation")
}

func TestProvider_AsOfPublicationLag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.AsOf = "2024-10-06T09:00:00Z"
	cfg.Runtime.PublicationLagSeconds = map[string]float64{feeds.FeedWeather: 7200}

	p := newTestProvider(t, cfg, fetchersFrom(validEnvelopes("2024-10-06T08:00:00Z")), Options{})
	_, err := p.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)

	flags := p.LastSummary().QualityFlags
	assert.Contains(t, flags, "weather:as_of_violation")
	assert.NotContains(t, flags, "market:as_of_violation")
}

func TestProvider_AsOfConflict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.AsOf = "2024-10-06T09:00:00Z"
	cfg.Runtime.AsOfDate = "2024-10-06"

	_, err := New(cfg, Options{})
	assert.Error(t, err)
}

func TestProvider_SnapshotRecordAndReplay(t *testing.T) {
	store := memory.NewFeedSnapshotStore()
	ctx := context.Background()
	league := testLeague()

	cfg := DefaultConfig()
	cfg.Runtime.SnapshotEnabled = true
	recorder := newTestProvider(t, cfg, fetchersFrom(validEnvelopes("2024-10-06T08:00:00Z")), Options{Snapshots: store})
	_, err := recorder.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)

	records, _, err := store.Load(ctx, domain.FeedSnapshotKey{LeagueID: 77, Year: 2024, Week: 4, FeedName: feeds.FeedOdds})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-10-06T12:00:00Z", records[0].ObservedAtUTC)

	// Replay at a cutoff after the observation uses the stored payload.
	replayCfg := DefaultConfig()
	replayCfg.Runtime.SnapshotEnabled = true
	replayCfg.Runtime.AsOf = "2024-10-06T13:00:00Z"
	failing := map[string]*fakeFetcher{}
	for _, name := range feeds.AllFeeds {
		failing[name] = &fakeFetcher{name: name, err: errors.New("must not be called")}
	}
	replayer := newTestProvider(t, replayCfg, failing, Options{Snapshots: store})
	_, err = replayer.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)
	assert.Contains(t, replayer.LastSummary().QualityFlags, "odds:snapshot_replay")
	for _, f := range failing {
		assert.Zero(t, f.calls.Load())
	}

	// A cutoff before any observation finds nothing.
	earlyCfg := replayCfg
	earlyCfg.Runtime.AsOf = "2024-10-05T00:00:00Z"
	early := newTestProvider(t, earlyCfg, failing, Options{Snapshots: store})
	_, err = early.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)
	assert.Contains(t, early.LastSummary().QualityFlags, "odds:as_of_snapshot_missing")
}

func TestProvider_CachesWithinTTL(t *testing.T) {
	fakes := fetchersFrom(validEnvelopes("2024-10-06T10:00:00Z"))
	now := testNow
	p := newTestProvider(t, DefaultConfig(), fakes, Options{Now: func() time.Time { return now }})
	ctx := context.Background()
	league := testLeague()

	first, err := p.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)
	first[101] = 999

	second, err := p.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)
	assert.NotEqual(t, 999.0, second[101])
	assert.EqualValues(t, 1, fakes[feeds.FeedMarket].calls.Load())

	now = now.Add(10 * time.Minute)
	_, err = p.PlayerAdjustments(ctx, league, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fakes[feeds.FeedMarket].calls.Load())
}

func TestProvider_Determinism(t *testing.T) {
	envs := validEnvelopes("2024-10-06T10:00:00Z")
	a := newTestProvider(t, DefaultConfig(), fetchersFrom(envs), Options{})
	b := newTestProvider(t, DefaultConfig(), fetchersFrom(envs), Options{})

	got1, err := a.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)
	got2, err := b.PlayerAdjustments(context.Background(), testLeague(), 4)
	require.NoError(t, err)
	assert.Equal(t, got1, got2)
}
