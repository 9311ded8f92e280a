package evaluation

import (
	"context"

	"github.com/rs/zerolog"

	"fantasy-alpha-lab/internal/alpha"
	"fantasy-alpha-lab/internal/backtest"
	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/signals"
	"fantasy-alpha-lab/internal/simulation"
)

// SimulatorSpec describes one side of a seed pair. Within a pair both
// specs share League, NumSimulations and Seed.
type SimulatorSpec struct {
	League         *domain.League
	NumSimulations int
	Seed           int64
	AlphaMode      bool
	AlphaConfig    *alpha.Config
	Provider       signals.Provider
}

// SeedSimulator is the simulator surface the harness drives.
type SeedSimulator interface {
	RunSimulations(ctx context.Context) (*simulation.RunResult, error)
	Backtest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error)
}

// SimulatorFactory builds the simulator for one side of a seed pair.
type SimulatorFactory func(spec SimulatorSpec) (SeedSimulator, error)

// NewSimulatorFactory returns the factory backed by simulation.Simulator.
func NewSimulatorFactory(logger zerolog.Logger) SimulatorFactory {
	return func(spec SimulatorSpec) (SeedSimulator, error) {
		seed := spec.Seed
		sim, err := simulation.New(simulation.Options{
			League:         spec.League,
			NumSimulations: spec.NumSimulations,
			Seed:           &seed,
			AlphaMode:      spec.AlphaMode,
			AlphaConfig:    spec.AlphaConfig,
			Provider:       spec.Provider,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return &simulatorAdapter{sim: sim}, nil
	}
}

type simulatorAdapter struct {
	sim *simulation.Simulator
}

func (a *simulatorAdapter) RunSimulations(ctx context.Context) (*simulation.RunResult, error) {
	return a.sim.RunSimulations(ctx)
}

func (a *simulatorAdapter) Backtest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error) {
	return backtest.Run(ctx, a.sim, cfg)
}
