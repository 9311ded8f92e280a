// Package main runs season simulations and lineup tools against a league
// snapshot.
//
// Usage:
//
//	simulate odds --league-id 123 --simulations 5000 --format md
//	simulate lineup --league-id 123 --team-id 4 --alpha --explain
//	simulate moves --league-id 123 --team-id 4 --alpha --pool 30
//	simulate draft --league-id 123 --preseason
//	simulate backtest --league-id 123 --alpha --sample-weeks 3
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fantasy-alpha-lab/internal/alpha"
	"fantasy-alpha-lab/internal/backtest"
	"fantasy-alpha-lab/internal/composite"
	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/league"
	"fantasy-alpha-lab/internal/reporting"
	"fantasy-alpha-lab/internal/signals"
	"fantasy-alpha-lab/internal/simulation"
)

const appName = "simulate"

// commonFlags configure the league snapshot and the simulator.
type commonFlags struct {
	logLevel       string
	leagueDir      string
	leagueID       int
	year           int
	simulations    int
	seed           int64
	preseason      bool
	alphaMode      bool
	providerConfig string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cf := &commonFlags{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "Monte Carlo season simulator with alpha-mode lineup tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			lvl, err := zerolog.ParseLevel(strings.ToLower(cf.logLevel))
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", cf.logLevel, err)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cf.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&cf.leagueDir, "league-dir", "data/leagues", "League snapshot directory (<dir>/<league>/<year>.yaml)")
	pf.IntVar(&cf.leagueID, "league-id", 0, "League id")
	pf.IntVar(&cf.year, "year", 0, "Season year (default: current year)")
	pf.IntVar(&cf.simulations, "simulations", 1000, "Simulated seasons")
	pf.Int64Var(&cf.seed, "seed", 0, "Random seed (0 seeds from the clock)")
	pf.BoolVar(&cf.preseason, "preseason", false, "Ignore decided games and simulate the full schedule")
	pf.BoolVar(&cf.alphaMode, "alpha", false, "Use alpha projections")
	pf.StringVar(&cf.providerConfig, "provider-config", "", "Composite signal provider config for alpha mode")
	_ = root.MarkPersistentFlagRequired("league-id")

	root.AddCommand(
		newOddsCmd(cf),
		newLineupCmd(cf),
		newMovesCmd(cf),
		newDraftCmd(cf),
		newBacktestCmd(cf),
	)
	return root
}

func newOddsCmd(cf *commonFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Simulate the rest of the season and print playoff and championship odds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sim, lg, err := cf.build(ctx)
			if err != nil {
				return err
			}
			result, err := sim.RunSimulations(ctx)
			if err != nil {
				return err
			}
			report := reporting.NewGenerator(nil, nil).GenerateOdds(lg, result)
			switch format {
			case "md":
				fmt.Print(reporting.RenderOddsMarkdown(report))
			case "csv":
				fmt.Print(reporting.RenderOddsCSV(report.Rows))
			case "json":
				return writeJSON(cmd.OutOrStdout(), report)
			default:
				return fmt.Errorf("unknown format %q (md|csv|json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "Output format (md|csv|json)")
	return cmd
}

func newLineupCmd(cf *commonFlags) *cobra.Command {
	var (
		teamID  int
		week    int
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "lineup",
		Short: "Recommend a lineup for one team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sim, _, err := cf.build(ctx)
			if err != nil {
				return err
			}
			rec, err := sim.RecommendLineup(ctx, teamID, week, explain)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().IntVar(&teamID, "team-id", 0, "Team id")
	cmd.Flags().IntVar(&week, "week", 0, "Week (0 means the current week)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Include per-player factors and confidence bands")
	_ = cmd.MarkFlagRequired("team-id")
	return cmd
}

func newMovesCmd(cf *commonFlags) *cobra.Command {
	var (
		teamID  int
		pool    int
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "moves",
		Short: "Rank trade targets and free-agent adds for one team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sim, lg, err := cf.build(ctx)
			if err != nil {
				return err
			}
			freeAgents, err := lg.FreeAgents(ctx, lg.CurrentWeek, pool)
			if err != nil {
				return fmt.Errorf("load free agents: %w", err)
			}
			moves, err := sim.OptimalMoves(ctx, teamID, freeAgents, explain)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), moves)
		},
	}
	cmd.Flags().IntVar(&teamID, "team-id", 0, "Team id")
	cmd.Flags().IntVar(&pool, "pool", 50, "Free agents to consider (0 means all)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Include factors and confidence bands")
	_ = cmd.MarkFlagRequired("team-id")
	return cmd
}

func newDraftCmd(cf *commonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "draft",
		Short: "Compare draft strategies by the championship rosters they produce",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cf.preseason = true
			sim, _, err := cf.build(cmd.Context())
			if err != nil {
				return err
			}
			profiles, err := sim.AnalyzeDraftStrategy()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), profiles)
		},
	}
}

func newBacktestCmd(cf *commonFlags) *cobra.Command {
	cfg := backtest.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Compare current and alpha-optimized lineups for every team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cf.alphaMode = true
			sim, _, err := cf.build(ctx)
			if err != nil {
				return err
			}
			res, err := backtest.Run(ctx, sim, cfg)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&cfg.SampleWeeks, "sample-weeks", cfg.SampleWeeks, "Weeks the weekly delta is projected over")
	return cmd
}

// build loads the league snapshot and constructs the simulator.
func (cf *commonFlags) build(ctx context.Context) (*simulation.Simulator, *domain.League, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("app", appName).Logger()

	year := cf.year
	if year <= 0 {
		year = time.Now().Year()
	}
	lg, err := league.Load(cf.leagueDir, cf.leagueID, year)
	if err != nil {
		return nil, nil, err
	}

	opts := simulation.Options{
		League:         lg,
		NumSimulations: cf.simulations,
		Preseason:      cf.preseason,
		AlphaMode:      cf.alphaMode,
		Logger:         logger,
	}
	if cf.seed != 0 {
		seed := cf.seed
		opts.Seed = &seed
	}
	if cf.alphaMode {
		cfg := alpha.DefaultConfig()
		opts.AlphaConfig = &cfg
		provider, err := cf.provider(logger)
		if err != nil {
			return nil, nil, err
		}
		opts.Provider = provider
	}

	sim, err := simulation.New(opts)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Int("league_id", lg.LeagueID).Int("year", lg.Year).Int("teams", len(lg.Teams)).
		Bool("alpha", cf.alphaMode).Msg("Simulator ready")
	return sim, lg, nil
}

func (cf *commonFlags) provider(logger zerolog.Logger) (signals.Provider, error) {
	if cf.providerConfig == "" {
		return signals.NullProvider{}, nil
	}
	pc, err := composite.LoadConfig(cf.providerConfig)
	if err != nil {
		return nil, err
	}
	p, err := composite.New(pc, composite.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return signals.NewSafeProvider(p, logger), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
