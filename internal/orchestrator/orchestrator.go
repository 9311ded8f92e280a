// Package orchestrator runs the A/B evaluation pipeline end to end.
// It coordinates: league load → signal provider → evaluation → persistence
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fantasy-alpha-lab/internal/composite"
	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/evaluation"
	"fantasy-alpha-lab/internal/observability"
	"fantasy-alpha-lab/internal/signals"
	"fantasy-alpha-lab/internal/storage"
)

// Phase names reported to metrics and logs.
const (
	PhaseLoadLeague = "load_league"
	PhaseProvider   = "provider"
	PhaseEvaluate   = "evaluate"
	PhasePersist    = "persist"
)

// Orchestrator coordinates the A/B pipeline execution.
// Flow: league load → provider → evaluation → persistence
type Orchestrator struct {
	// Stores; nil stores skip persistence
	runStore  storage.ABRunStore
	seedStore storage.SeedMetricStore

	league       *domain.League
	leagueLoader evaluation.LeagueLoader

	providerConfig  *composite.Config
	providerOptions composite.Options
	provider        signals.Provider

	factory evaluation.SimulatorFactory
	logger  zerolog.Logger
	now     func() time.Time
	gitRev  func(ctx context.Context) string
}

// Options for creating Orchestrator.
type Options struct {
	// Optional stores
	ABRunStore      storage.ABRunStore
	SeedMetricStore storage.SeedMetricStore

	// League source: League wins over LeagueLoader
	League       *domain.League
	LeagueLoader evaluation.LeagueLoader

	// Signal provider: Provider wins over ProviderConfig. Neither means
	// the alpha side runs without external signals.
	Provider        signals.Provider
	ProviderConfig  *composite.Config
	ProviderOptions composite.Options

	SimulatorFactory evaluation.SimulatorFactory
	Logger           zerolog.Logger
	Now              func() time.Time
	GitRevision      func(ctx context.Context) string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		runStore:        opts.ABRunStore,
		seedStore:       opts.SeedMetricStore,
		league:          opts.League,
		leagueLoader:    opts.LeagueLoader,
		providerConfig:  opts.ProviderConfig,
		providerOptions: opts.ProviderOptions,
		provider:        opts.Provider,
		factory:         opts.SimulatorFactory,
		logger:          opts.Logger,
		now:             opts.Now,
		gitRev:          opts.GitRevision,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Evaluation *evaluation.Result

	// ProviderSummary is set when a composite provider was built.
	ProviderSummary  *composite.Summary
	ProviderWarnings []string

	Persisted bool
	Errors    []string
}

// Run executes the full pipeline.
// Phases:
//  1. Load league snapshot
//  2. Build signal provider
//  3. Run the seeded A/B evaluation (writes artifacts)
//  4. Persist run and seed metrics
//
// Persistence failures are collected in RunResult.Errors; the artifacts on
// disk remain the record of the run.
func (o *Orchestrator) Run(ctx context.Context, cfg evaluation.Config) (*RunResult, error) {
	result := &RunResult{}

	o.logger.Info().Int("league_id", cfg.LeagueID).Int("year", cfg.Year).Msg("Phase 1: Loading league")
	league, err := timed(PhaseLoadLeague, func() (*domain.League, error) { return o.loadLeague(ctx, cfg.Year) })
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load league) failed: %w", err)
	}
	o.logger.Info().Int("teams", len(league.Teams)).Int("current_week", league.CurrentWeek).Msg("League loaded")

	o.logger.Info().Msg("Phase 2: Building signal provider")
	provider, err := timed(PhaseProvider, func() (signals.Provider, error) { return o.buildProvider() })
	if err != nil {
		return nil, fmt.Errorf("phase 2 (provider) failed: %w", err)
	}

	o.logger.Info().Str("profile", cfg.Profile).Int("seeds", cfg.Seeds).Int("simulations", cfg.Simulations).
		Msg("Phase 3: Running A/B evaluation")
	harness := evaluation.NewHarness(evaluation.Options{
		League:           league,
		Provider:         provider,
		SimulatorFactory: o.factory,
		Logger:           o.logger,
		Now:              o.now,
		GitRevision:      o.gitRev,
	})
	evalResult, err := timed(PhaseEvaluate, func() (*evaluation.Result, error) { return harness.Run(ctx, cfg) })
	if err != nil {
		return nil, fmt.Errorf("phase 3 (evaluate) failed: %w", err)
	}
	result.Evaluation = evalResult
	o.logger.Info().Str("run_id", evalResult.RunID).Str("output_dir", evalResult.OutputDir).
		Int("warnings", len(evalResult.Warnings)).Msg("Artifacts written")

	if cp, ok := provider.(*composite.Provider); ok {
		summary := cp.LastSummary()
		result.ProviderSummary = &summary
		result.ProviderWarnings = cp.LastWarnings()
	}

	if o.runStore == nil && o.seedStore == nil {
		o.logger.Info().Msg("Phase 4: Skipping persistence (no stores configured)")
		return result, nil
	}

	o.logger.Info().Msg("Phase 4: Persisting run")
	start := time.Now()
	result.Errors = o.persist(ctx, cfg, evalResult)
	status := "ok"
	if len(result.Errors) > 0 {
		status = "error"
		for _, e := range result.Errors {
			o.logger.Warn().Str("error", e).Msg("Persistence failed")
		}
	}
	observability.RecordPipelineRun(PhasePersist, status, time.Since(start).Seconds())
	result.Persisted = len(result.Errors) == 0

	o.logger.Info().Str("run_id", evalResult.RunID).Bool("persisted", result.Persisted).Msg("Pipeline completed")
	return result, nil
}

func (o *Orchestrator) loadLeague(ctx context.Context, year int) (*domain.League, error) {
	if o.league != nil {
		return o.league, nil
	}
	if o.leagueLoader == nil {
		return nil, errors.New("no league or league loader configured")
	}
	league, err := o.leagueLoader(ctx, year)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, fmt.Errorf("loader returned no league for %d", year)
	}
	return league, nil
}

func (o *Orchestrator) buildProvider() (signals.Provider, error) {
	if o.provider != nil {
		return o.provider, nil
	}
	if o.providerConfig == nil {
		return signals.NullProvider{}, nil
	}
	opts := o.providerOptions
	if opts.Now == nil {
		opts.Now = o.now
	}
	opts.Logger = o.logger
	p, err := composite.New(*o.providerConfig, opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// persist stores the run record and its seed rows.
func (o *Orchestrator) persist(ctx context.Context, cfg evaluation.Config, res *evaluation.Result) []string {
	var errs []string

	if o.runStore != nil {
		run, err := buildABRun(cfg, res)
		if err != nil {
			errs = append(errs, fmt.Sprintf("encode run %s: %v", res.RunID, err))
		} else if err := o.runStore.Insert(ctx, run); err != nil {
			errs = append(errs, fmt.Sprintf("insert run %s: %v", res.RunID, err))
		}
	}

	if o.seedStore != nil && len(res.Seeds) > 0 {
		rows := make([]*domain.SeedResult, 0, len(res.Seeds))
		for i := range res.Seeds {
			row := res.Seeds[i]
			rows = append(rows, &row)
		}
		if err := o.seedStore.InsertBulk(ctx, rows); err != nil {
			errs = append(errs, fmt.Sprintf("insert seeds %s: %v", res.RunID, err))
		}
	}

	return errs
}

// buildABRun converts an evaluation result into its stored record.
func buildABRun(cfg evaluation.Config, res *evaluation.Result) (*domain.ABRun, error) {
	manifest, err := json.Marshal(res.Manifest)
	if err != nil {
		return nil, err
	}
	summary, err := json.Marshal(res.Summary)
	if err != nil {
		return nil, err
	}
	dec, err := json.Marshal(res.Decision)
	if err != nil {
		return nil, err
	}

	status := ""
	if res.Decision != nil {
		status = string(res.Decision.Status)
	}
	return &domain.ABRun{
		RunID:          res.RunID,
		CreatedAt:      res.CreatedAt,
		LeagueID:       cfg.LeagueID,
		TeamID:         cfg.TeamID,
		Year:           cfg.Year,
		Profile:        cfg.Profile,
		Seeds:          cfg.Seeds,
		ConfigHash:     res.Manifest.ConfigHash,
		GitSHA:         res.Manifest.GitSHA,
		DecisionStatus: status,
		Manifest:       manifest,
		Summary:        summary,
		Decision:       dec,
	}, nil
}

// timed runs one phase and records its duration and outcome.
func timed[T any](phase string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelineRun(phase, status, time.Since(start).Seconds())
	return v, err
}
