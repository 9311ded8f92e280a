package evaluation

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"fantasy-alpha-lab/internal/backtest"
	"fantasy-alpha-lab/internal/decision"
	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/idhash"
	"fantasy-alpha-lab/internal/metrics"
	"fantasy-alpha-lab/internal/observability"
	"fantasy-alpha-lab/internal/signals"
)

// WarningNoCompletedWeeks is reported when the week window is empty.
const WarningNoCompletedWeeks = "No completed weeks in scope; using sample_weeks=1 for alpha backtest"

// LeagueLoader loads the league snapshot for a season.
type LeagueLoader func(ctx context.Context, year int) (*domain.League, error)

// Options configures a Harness.
type Options struct {
	// League is used as-is when set; otherwise LeagueLoader is called.
	League       *domain.League
	LeagueLoader LeagueLoader

	// Provider feeds the alpha side of every pair. Nil means no external signals.
	Provider signals.Provider

	// SimulatorFactory defaults to NewSimulatorFactory(Logger).
	SimulatorFactory SimulatorFactory

	Logger zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time

	// GitRevision defaults to idhash.GitRevision in the working directory.
	GitRevision func(ctx context.Context) string
}

// Manifest is written to run_manifest.json.
type Manifest struct {
	RunID           string  `json:"run_id"`
	TimestampUTC    string  `json:"timestamp_utc"`
	GitSHA          string  `json:"git_sha"`
	ConfigHash      string  `json:"config_hash"`
	EffectiveConfig Config  `json:"effective_config"`
	ProfileDefaults Profile `json:"profile_defaults"`
	Seeds           []int   `json:"seeds"`
	WeekWindow      []int   `json:"week_window"`
}

// Result is the outcome of one evaluation run.
type Result struct {
	RunID     string              `json:"run_id"`
	OutputDir string              `json:"output_dir"`
	CreatedAt time.Time           `json:"created_at"`
	Config    Config              `json:"-"`
	Manifest  Manifest            `json:"run_manifest"`
	Seeds     []domain.SeedResult `json:"metrics_per_seed"`
	Summary   metrics.RunSummary  `json:"metrics_summary"`
	Decision  *decision.Result    `json:"decision"`
	Warnings  []string            `json:"warnings"`
}

// Harness runs seeded baseline-vs-alpha pairs and writes the run artifacts.
type Harness struct {
	league   *domain.League
	loader   LeagueLoader
	provider signals.Provider
	factory  SimulatorFactory
	logger   zerolog.Logger
	now      func() time.Time
	gitRev   func(ctx context.Context) string
}

// NewHarness creates a harness.
func NewHarness(opts Options) *Harness {
	h := &Harness{
		league:   opts.League,
		loader:   opts.LeagueLoader,
		provider: opts.Provider,
		factory:  opts.SimulatorFactory,
		logger:   opts.Logger,
		now:      opts.Now,
		gitRev:   opts.GitRevision,
	}
	if h.factory == nil {
		h.factory = NewSimulatorFactory(opts.Logger)
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.gitRev == nil {
		h.gitRev = func(ctx context.Context) string { return idhash.GitRevision(ctx, ".") }
	}
	return h
}

// Run executes every seed of cfg and writes the artifacts under
// cfg.OutputDir/<run_id>. A failing seed is recorded and the batch continues;
// a cancelled context aborts the batch.
func (h *Harness) Run(ctx context.Context, cfg Config) (*Result, error) {
	league, err := h.loadLeague(ctx, cfg.Year)
	if err != nil {
		return nil, err
	}

	var warnings []string
	window, err := ParseWeeks(cfg.Weeks, league.CurrentWeek)
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		warnings = append(warnings, WarningNoCompletedWeeks)
	}
	sampleWeeks := max(1, len(window))

	seeds := seedList(cfg.Seeds)
	rows := make([]domain.SeedResult, 0, len(seeds))
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		row, err := h.runSeed(ctx, league, cfg, seed, sampleWeeks)
		observability.RecordSeed(err == nil, time.Since(start))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			h.logger.Warn().Err(err).Int("seed", seed).Msg("Seed failed")
			row = domain.SeedResult{Seed: seed, Status: domain.SeedStatusError, Error: err.Error()}
			warnings = append(warnings, fmt.Sprintf("Seed %d failed: %v", seed, err))
		}
		rows = append(rows, row)
	}

	summary := metrics.Aggregate(rows)
	result := decision.NewEvaluator(cfg.Gate).Evaluate(decision.BuildInput(summary))

	now := h.now().UTC()
	runID := idhash.NewRunID(now)
	configHash, err := idhash.ComputeConfigHash(cfg)
	if err != nil {
		return nil, err
	}
	manifest := Manifest{
		RunID:           runID,
		TimestampUTC:    now.Format(time.RFC3339),
		GitSHA:          h.gitRev(ctx),
		ConfigHash:      configHash,
		EffectiveConfig: cfg,
		ProfileDefaults: ProfileDefaults(cfg.Profile),
		Seeds:           seeds,
		WeekWindow:      window,
	}
	for i := range rows {
		rows[i].RunID = runID
	}

	out := &Result{
		RunID:     runID,
		OutputDir: filepath.Join(cfg.OutputDir, runID),
		CreatedAt: now,
		Config:    cfg,
		Manifest:  manifest,
		Seeds:     rows,
		Summary:   summary,
		Decision:  result,
		Warnings:  warnings,
	}
	if err := writeArtifacts(out); err != nil {
		return nil, err
	}

	observability.RecordABRun(string(result.Status))
	h.logger.Info().
		Str("run_id", runID).
		Str("status", string(result.Status)).
		Int("successful_seeds", summary.SuccessfulSeeds).
		Int("seeds", len(seeds)).
		Msg("A/B evaluation complete")
	return out, nil
}

func (h *Harness) loadLeague(ctx context.Context, year int) (*domain.League, error) {
	if h.league != nil {
		return h.league, nil
	}
	if h.loader == nil {
		return nil, fmt.Errorf("%w: no league or league loader", ErrInvalidConfig)
	}
	league, err := h.loader(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load league: %w", err)
	}
	if league == nil {
		return nil, fmt.Errorf("load league: loader returned no league for %d", year)
	}
	return league, nil
}

// runSeed runs one baseline/alpha pair. Panics are reported as seed errors.
func (h *Harness) runSeed(ctx context.Context, league *domain.League, cfg Config, seed, sampleWeeks int) (row domain.SeedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	alphaCfg := cfg.AlphaConfig.Clone()
	baseline, err := h.factory(SimulatorSpec{
		League:         league,
		NumSimulations: cfg.Simulations,
		Seed:           int64(seed),
	})
	if err != nil {
		return row, err
	}
	alphaSim, err := h.factory(SimulatorSpec{
		League:         league,
		NumSimulations: cfg.Simulations,
		Seed:           int64(seed),
		AlphaMode:      true,
		AlphaConfig:    &alphaCfg,
		Provider:       h.provider,
	})
	if err != nil {
		return row, err
	}

	baseRes, err := baseline.RunSimulations(ctx)
	if err != nil {
		return row, fmt.Errorf("baseline run: %w", err)
	}
	alphaRes, err := alphaSim.RunSimulations(ctx)
	if err != nil {
		return row, fmt.Errorf("alpha run: %w", err)
	}
	baseTeam, ok := baseRes.Teams[cfg.TeamID]
	if !ok {
		return row, fmt.Errorf("team %d missing from baseline results", cfg.TeamID)
	}
	alphaTeam, ok := alphaRes.Teams[cfg.TeamID]
	if !ok {
		return row, fmt.Errorf("team %d missing from alpha results", cfg.TeamID)
	}

	bt, err := alphaSim.Backtest(ctx, backtest.Config{SampleWeeks: sampleWeeks})
	if err != nil {
		return row, fmt.Errorf("alpha backtest: %w", err)
	}

	return domain.SeedResult{
		Seed:                 seed,
		WeeklyPointsLift:     bt.WeeklyPointsDelta,
		PlayoffOddsLift:      alphaTeam.PlayoffOdds - baseTeam.PlayoffOdds,
		ChampionshipOddsLift: alphaTeam.ChampionshipOdds - baseTeam.ChampionshipOdds,
		CalibrationBrier:     bt.BrierScore,
		Status:               domain.SeedStatusOK,
	}, nil
}

// seedList returns 1..n.
func seedList(n int) []int {
	seeds := make([]int, 0, n)
	for s := 1; s <= n; s++ {
		seeds = append(seeds, s)
	}
	return seeds
}
