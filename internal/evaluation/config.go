// Package evaluation runs the seeded baseline-vs-alpha A/B harness and
// applies the decision gate to the resulting lift distribution.
package evaluation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fantasy-alpha-lab/internal/alpha"
	"fantasy-alpha-lab/internal/decision"
)

// ErrInvalidConfig is returned for configurations rejected before any
// simulation work starts.
var ErrInvalidConfig = errors.New("invalid A/B evaluation config")

// DefaultOutputDir is the artifact root when none is configured.
const DefaultOutputDir = "reports/ab_runs"

// DefaultProfile names the profile used for unknown or missing profiles.
const DefaultProfile = "default"

// WeeksAuto selects the last completed weeks.
const WeeksAuto = "auto"

// Profile holds the simulation budget of a named profile.
type Profile struct {
	Simulations int `json:"simulations" yaml:"simulations"`
	Seeds       int `json:"seeds" yaml:"seeds"`
}

// Profiles lists the named budgets.
var Profiles = map[string]Profile{
	"quick":   {Simulations: 1200, Seeds: 3},
	"default": {Simulations: 5000, Seeds: 7},
	"deep":    {Simulations: 12000, Seeds: 15},
}

// ProfileDefaults returns the budget for name, falling back to the default profile.
func ProfileDefaults(name string) Profile {
	if p, ok := Profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return Profiles[DefaultProfile]
}

// WeekSpec is a week window expression: "auto", "5", "3-6" or "2,4,6".
// YAML and JSON numbers decode into their decimal text.
type WeekSpec string

// UnmarshalYAML accepts any scalar.
func (w *WeekSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("weeks must be a scalar, got %s", value.Tag)
	}
	*w = WeekSpec(value.Value)
	return nil
}

// UnmarshalJSON accepts a string or a number.
func (w *WeekSpec) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	*w = WeekSpec(text)
	return nil
}

// LeagueSection is the nested league block of a config file.
type LeagueSection struct {
	LeagueID *int `json:"league_id,omitempty" yaml:"league_id,omitempty"`
	TeamID   *int `json:"team_id,omitempty" yaml:"team_id,omitempty"`
	Year     *int `json:"year,omitempty" yaml:"year,omitempty"`
}

// SimulationSection is the nested simulation block of a config file.
type SimulationSection struct {
	Simulations *int             `json:"simulations,omitempty" yaml:"simulations,omitempty"`
	Seeds       *int             `json:"seeds,omitempty" yaml:"seeds,omitempty"`
	AlphaConfig *alpha.Overrides `json:"alpha_config,omitempty" yaml:"alpha_config,omitempty"`
}

// EvaluationSection is the nested evaluation block of a config file.
type EvaluationSection struct {
	Weeks *WeekSpec `json:"weeks,omitempty" yaml:"weeks,omitempty"`
}

// OutputSection is the nested output block of a config file.
type OutputSection struct {
	OutputDir *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
}

// GateSection overrides individual gate thresholds.
type GateSection struct {
	MinWeeklyPointsLift    *float64 `json:"min_weekly_points_lift,omitempty" yaml:"min_weekly_points_lift,omitempty"`
	MaxDownsideProbability *float64 `json:"max_downside_probability,omitempty" yaml:"max_downside_probability,omitempty"`
	MinSuccessfulSeeds     *int     `json:"min_successful_seeds,omitempty" yaml:"min_successful_seeds,omitempty"`
}

// RawConfig is an unresolved configuration. Flat keys take precedence over
// the nested sections. Unknown keys are ignored.
type RawConfig struct {
	Profile     *string          `json:"profile,omitempty" yaml:"profile,omitempty"`
	LeagueID    *int             `json:"league_id,omitempty" yaml:"league_id,omitempty"`
	TeamID      *int             `json:"team_id,omitempty" yaml:"team_id,omitempty"`
	Year        *int             `json:"year,omitempty" yaml:"year,omitempty"`
	Simulations *int             `json:"simulations,omitempty" yaml:"simulations,omitempty"`
	Seeds       *int             `json:"seeds,omitempty" yaml:"seeds,omitempty"`
	Weeks       *WeekSpec        `json:"weeks,omitempty" yaml:"weeks,omitempty"`
	AlphaConfig *alpha.Overrides `json:"alpha_config,omitempty" yaml:"alpha_config,omitempty"`
	OutputDir   *string          `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	League     LeagueSection     `json:"league,omitempty" yaml:"league,omitempty"`
	Simulation SimulationSection `json:"simulation,omitempty" yaml:"simulation,omitempty"`
	Evaluation EvaluationSection `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	Output     OutputSection     `json:"output,omitempty" yaml:"output,omitempty"`
	Gate       GateSection       `json:"gate,omitempty" yaml:"gate,omitempty"`
}

// Overrides are command-line values applied over a RawConfig.
// Nil fields never clobber file values.
type Overrides struct {
	Profile     *string
	LeagueID    *int
	TeamID      *int
	Year        *int
	Simulations *int
	Seeds       *int
	Weeks       *string
	OutputDir   *string
}

// Merge returns raw with the non-nil overrides applied as flat keys.
func (raw RawConfig) Merge(o Overrides) RawConfig {
	out := raw
	if o.Profile != nil {
		out.Profile = o.Profile
	}
	if o.LeagueID != nil {
		out.LeagueID = o.LeagueID
	}
	if o.TeamID != nil {
		out.TeamID = o.TeamID
	}
	if o.Year != nil {
		out.Year = o.Year
	}
	if o.Simulations != nil {
		out.Simulations = o.Simulations
	}
	if o.Seeds != nil {
		out.Seeds = o.Seeds
	}
	if o.Weeks != nil {
		w := WeekSpec(*o.Weeks)
		out.Weeks = &w
	}
	if o.OutputDir != nil {
		out.OutputDir = o.OutputDir
	}
	return out
}

// Config is the effective configuration of one evaluation.
type Config struct {
	LeagueID    int                 `json:"league_id"`
	TeamID      int                 `json:"team_id"`
	Year        int                 `json:"year"`
	Profile     string              `json:"profile"`
	Simulations int                 `json:"simulations"`
	Seeds       int                 `json:"seeds"`
	Weeks       string              `json:"weeks"`
	AlphaConfig alpha.Config        `json:"alpha_config"`
	OutputDir   string              `json:"output_dir"`
	Gate        decision.GateConfig `json:"gate"`
}

// LoadRawConfig reads a YAML or JSON config file.
func LoadRawConfig(path string) (RawConfig, error) {
	var raw RawConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, fmt.Errorf("read A/B config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return raw, nil
}

// Resolve merges overrides into raw and fills profile defaults. now supplies
// the default season year. Missing or non-positive league and team ids and
// malformed week windows are rejected.
func Resolve(raw RawConfig, o Overrides, now time.Time) (Config, error) {
	raw = raw.Merge(o)

	profile := DefaultProfile
	if raw.Profile != nil && strings.TrimSpace(*raw.Profile) != "" {
		profile = strings.ToLower(strings.TrimSpace(*raw.Profile))
	}
	defaults := ProfileDefaults(profile)

	cfg := Config{
		LeagueID:    firstInt(0, raw.LeagueID, raw.League.LeagueID),
		TeamID:      firstInt(0, raw.TeamID, raw.League.TeamID),
		Year:        firstInt(now.Year(), raw.Year, raw.League.Year),
		Profile:     profile,
		Simulations: max(1, firstInt(defaults.Simulations, raw.Simulations, raw.Simulation.Simulations)),
		Seeds:       max(1, firstInt(defaults.Seeds, raw.Seeds, raw.Simulation.Seeds)),
		Weeks:       WeeksAuto,
		AlphaConfig: alpha.DefaultConfig(),
		OutputDir:   DefaultOutputDir,
		Gate:        resolveGate(raw.Gate),
	}

	switch {
	case raw.Weeks != nil:
		cfg.Weeks = string(*raw.Weeks)
	case raw.Evaluation.Weeks != nil:
		cfg.Weeks = string(*raw.Evaluation.Weeks)
	}
	switch {
	case raw.AlphaConfig != nil:
		cfg.AlphaConfig = cfg.AlphaConfig.Apply(*raw.AlphaConfig)
	case raw.Simulation.AlphaConfig != nil:
		cfg.AlphaConfig = cfg.AlphaConfig.Apply(*raw.Simulation.AlphaConfig)
	}
	switch {
	case raw.OutputDir != nil:
		cfg.OutputDir = *raw.OutputDir
	case raw.Output.OutputDir != nil:
		cfg.OutputDir = *raw.Output.OutputDir
	}

	if cfg.LeagueID <= 0 {
		return cfg, fmt.Errorf("%w: A/B evaluation requires a valid league_id", ErrInvalidConfig)
	}
	if cfg.TeamID <= 0 {
		return cfg, fmt.Errorf("%w: A/B evaluation requires a valid team_id", ErrInvalidConfig)
	}
	if _, err := ParseWeeks(cfg.Weeks, 1); err != nil {
		return cfg, err
	}
	if err := cfg.Gate.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func resolveGate(g GateSection) decision.GateConfig {
	gate := decision.DefaultGateConfig()
	if g.MinWeeklyPointsLift != nil {
		gate.MinWeeklyPointsLift = *g.MinWeeklyPointsLift
	}
	if g.MaxDownsideProbability != nil {
		gate.MaxDownsideProbability = *g.MaxDownsideProbability
	}
	if g.MinSuccessfulSeeds != nil {
		gate.MinSuccessfulSeeds = max(1, *g.MinSuccessfulSeeds)
	}
	return gate
}

// firstInt returns the first non-nil value, or def.
func firstInt(def int, values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return def
}
