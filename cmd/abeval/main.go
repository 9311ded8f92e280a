// Package main runs the seeded baseline-vs-alpha evaluation and prints the
// gate decision.
//
// Usage:
//
//	abeval --league-dir data/leagues --league-id 123 --team-id 4 --profile quick
//	abeval --config ab.yaml --provider-config alpha.yaml --postgres-dsn ... --clickhouse-dsn ...
//	abeval history --league-id 123 --team-id 4 --postgres-dsn ...
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fantasy-alpha-lab/internal/composite"
	"fantasy-alpha-lab/internal/evaluation"
	"fantasy-alpha-lab/internal/idhash"
	"fantasy-alpha-lab/internal/league"
	"fantasy-alpha-lab/internal/observability"
	"fantasy-alpha-lab/internal/orchestrator"
	"fantasy-alpha-lab/internal/reporting"
	"fantasy-alpha-lab/internal/storage"
	chstore "fantasy-alpha-lab/internal/storage/clickhouse"
	"fantasy-alpha-lab/internal/storage/migrations"
	pgstore "fantasy-alpha-lab/internal/storage/postgres"
)

const appName = "abeval"

// dbFlags are shared by the run and history commands.
type dbFlags struct {
	postgresDSN   string
	clickhouseDSN string
	migrate       bool
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
	var (
		logLevel       string
		configPath     string
		providerConfig string
		leagueDir      string
		metricsAddr    string
		profile        string
		leagueID       int
		teamID         int
		year           int
		simulations    int
		seeds          int
		weeks          string
		outputDir      string
		db             dbFlags
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "Seeded A/B evaluation of alpha-mode lineups",
		Long:          "Runs paired baseline and alpha simulations per seed, aggregates the lift and applies the decision gate.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			raw := evaluation.RawConfig{}
			if configPath != "" {
				loaded, err := evaluation.LoadRawConfig(configPath)
				if err != nil {
					return err
				}
				raw = loaded
			}

			overrides := evaluation.Overrides{}
			flags := cmd.Flags()
			if flags.Changed("profile") {
				overrides.Profile = &profile
			}
			if flags.Changed("league-id") {
				overrides.LeagueID = &leagueID
			}
			if flags.Changed("team-id") {
				overrides.TeamID = &teamID
			}
			if flags.Changed("year") {
				overrides.Year = &year
			}
			if flags.Changed("simulations") {
				overrides.Simulations = &simulations
			}
			if flags.Changed("seeds") {
				overrides.Seeds = &seeds
			}
			if flags.Changed("weeks") {
				overrides.Weeks = &weeks
			}
			if flags.Changed("output-dir") {
				overrides.OutputDir = &outputDir
			}

			cfg, err := evaluation.Resolve(raw, overrides, time.Now())
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				startMetricsServer(metricsAddr, logger)
			}

			opts := orchestrator.Options{
				LeagueLoader: league.Loader(leagueDir, cfg.LeagueID),
				Logger:       logger,
				GitRevision:  gitRevision,
			}

			if providerConfig != "" {
				pc, err := composite.LoadConfig(providerConfig)
				if err != nil {
					return err
				}
				opts.ProviderConfig = &pc
			}

			stores, err := openStores(ctx, db, logger)
			if err != nil {
				return err
			}
			defer stores.close()
			opts.ABRunStore = stores.runStore
			opts.SeedMetricStore = stores.seedStore
			if stores.pool != nil && opts.ProviderConfig != nil && opts.ProviderConfig.Runtime.SnapshotEnabled {
				retention := time.Duration(opts.ProviderConfig.Runtime.SnapshotRetentionDays) * 24 * time.Hour
				opts.ProviderOptions.Snapshots = pgstore.NewFeedSnapshotStore(stores.pool, retention)
			}

			result, err := orchestrator.New(opts).Run(ctx, cfg)
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&db.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for run records and feed snapshots")
	root.PersistentFlags().StringVar(&db.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for per-seed metrics")
	root.PersistentFlags().BoolVar(&db.migrate, "migrate", false, "Apply database migrations before use")

	f := root.Flags()
	f.StringVar(&configPath, "config", "", "A/B config file (YAML or JSON)")
	f.StringVar(&providerConfig, "provider-config", "", "Composite signal provider config (YAML or JSON); empty runs alpha without external signals")
	f.StringVar(&leagueDir, "league-dir", "data/leagues", "League snapshot directory (<dir>/<league>/<year>.yaml)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	f.StringVar(&profile, "profile", evaluation.DefaultProfile, "Budget profile (quick|default|deep)")
	f.IntVar(&leagueID, "league-id", 0, "League id")
	f.IntVar(&teamID, "team-id", 0, "Team id")
	f.IntVar(&year, "year", 0, "Season year (default: current year)")
	f.IntVar(&simulations, "simulations", 0, "Simulations per seed (overrides profile)")
	f.IntVar(&seeds, "seeds", 0, "Number of seeds (overrides profile)")
	f.StringVar(&weeks, "weeks", evaluation.WeeksAuto, "Week window: auto, N, A-B or comma list")
	f.StringVar(&outputDir, "output-dir", evaluation.DefaultOutputDir, "Artifact root directory")

	root.AddCommand(newHistoryCmd(&db))
	return root
}

func newHistoryCmd(db *dbFlags) *cobra.Command {
	var (
		leagueID int
		teamID   int
		out      string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored A/B runs for a team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if db.postgresDSN == "" {
				return errors.New("--postgres-dsn is required for history")
			}
			ctx := cmd.Context()
			logger := newLogger()

			stores, err := openStores(ctx, *db, logger)
			if err != nil {
				return err
			}
			defer stores.close()

			report, err := reporting.NewGenerator(stores.runStore, stores.seedStore).GenerateHistory(ctx, leagueID, teamID)
			if err != nil {
				return err
			}
			md := reporting.RenderHistoryMarkdown(report)
			if out == "" {
				fmt.Print(md)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			logger.Info().Str("path", out).Int("runs", len(report.Runs)).Msg("History report written")
			return nil
		},
	}
	cmd.Flags().IntVar(&leagueID, "league-id", 0, "League id")
	cmd.Flags().IntVar(&teamID, "team-id", 0, "Team id")
	cmd.Flags().StringVar(&out, "out", "", "Write the Markdown report to this file instead of stdout")
	_ = cmd.MarkFlagRequired("league-id")
	_ = cmd.MarkFlagRequired("team-id")
	return cmd
}

// dbStores holds the optional database-backed stores.
type dbStores struct {
	pool      *pgstore.Pool
	chConn    *chstore.Conn
	runStore  storage.ABRunStore
	seedStore storage.SeedMetricStore
}

func (s *dbStores) close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.chConn != nil {
		_ = s.chConn.Close()
	}
}

// openStores connects the configured databases; an empty DSN leaves that
// store unset.
func openStores(ctx context.Context, db dbFlags, logger zerolog.Logger) (*dbStores, error) {
	s := &dbStores{}

	if db.postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, db.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.pool = pool
		if db.migrate {
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				s.close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
			logger.Info().Int("migrations", len(applied)).Msg("PostgreSQL schema ready")
		}
		s.runStore = pgstore.NewABRunStore(pool)
		logger.Info().Msg("Connected to PostgreSQL")
	}

	if db.clickhouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if db.migrate {
			var applied []migrations.Migration
			conn, applied, err = migrations.RunClickhouseMigrations(ctx, db.clickhouseDSN)
			if err == nil {
				logger.Info().Int("migrations", len(applied)).Msg("ClickHouse schema ready")
			}
		} else {
			conn, err = chstore.NewConn(ctx, db.clickhouseDSN)
		}
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.chConn = conn
		s.seedStore = chstore.NewSeedMetricStore(conn)
		logger.Info().Msg("Connected to ClickHouse")
	}

	return s, nil
}

func gitRevision(ctx context.Context) string {
	wd, err := os.Getwd()
	if err != nil {
		return idhash.UnknownRevision
	}
	return idhash.GitRevision(ctx, wd)
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	return nil
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("app", appName).Logger()
}

func startMetricsServer(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics")
}

func printResult(r *orchestrator.RunResult) {
	res := r.Evaluation
	fmt.Printf("A/B run %s\n", res.RunID)
	fmt.Printf("  Profile:      %s (%d seeds x %d simulations)\n", res.Config.Profile, res.Config.Seeds, res.Config.Simulations)
	fmt.Printf("  Weeks:        %v\n", res.Manifest.WeekWindow)
	if res.Decision != nil {
		fmt.Printf("  Decision:     %s\n", strings.ToUpper(string(res.Decision.Status)))
		for _, reason := range res.Decision.Reasons {
			fmt.Printf("    - %s\n", reason)
		}
	}
	lift := res.Summary.WeeklyPointsLift
	fmt.Printf("  Weekly lift:  mean %.3f, p05 %.3f, p95 %.3f, downside %.2f\n", lift.Mean, lift.P05, lift.P95, lift.DownsideProbability)
	fmt.Printf("  Artifacts:    %s\n", res.OutputDir)
	for _, name := range evaluation.ArtifactFiles {
		fmt.Printf("    - %s\n", name)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	for _, w := range r.ProviderWarnings {
		fmt.Printf("  Provider warning: %s\n", w)
	}
	if r.Persisted {
		fmt.Println("  Stored run and seed metrics")
	}
	for _, e := range r.Errors {
		fmt.Printf("  Persistence error: %s\n", e)
	}
}
