package composite

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fantasy-alpha-lab/internal/feeds"
)

// Signal names.
const (
	SignalProjectionResidual   = "projection_residual"
	SignalUsageTrend           = "usage_trend"
	SignalInjuryOpportunity    = "injury_opportunity"
	SignalMatchupUnit          = "matchup_unit"
	SignalGameScript           = "game_script"
	SignalVolatilityAware      = "volatility_aware"
	SignalWeatherVenue         = "weather_venue"
	SignalMarketSentiment      = "market_sentiment_contrarian"
	SignalWaiverReplacement    = "waiver_replacement_value"
	SignalScheduleCluster      = "short_term_schedule_cluster"
	SignalPlayerTiltLeverage   = "player_tilt_leverage"
	SignalVegasProps           = "vegas_props"
	SignalWinProbabilityScript = "win_probability_script"
	SignalBackupQuality        = "backup_quality_adjustment"
	SignalRedZoneOpportunity   = "red_zone_opportunity"
	SignalSnapCountPercentage  = "snap_count_percentage"
	SignalLineMovement         = "line_movement"
)

// Cap names that are not signals.
const (
	CapTotalAdjustment         = "total_adjustment"
	CapMatchupSignalMultiplier = "matchup_signal_multiplier"
	CapMatchupMultiplier       = "matchup_multiplier"
)

// BaseSignals are always computed, in this order.
var BaseSignals = []string{
	SignalProjectionResidual,
	SignalUsageTrend,
	SignalInjuryOpportunity,
	SignalMatchupUnit,
	SignalGameScript,
	SignalVolatilityAware,
	SignalWeatherVenue,
	SignalMarketSentiment,
	SignalWaiverReplacement,
	SignalScheduleCluster,
}

// ExtendedSignals are computed only when enabled.
var ExtendedSignals = []string{
	SignalPlayerTiltLeverage,
	SignalVegasProps,
	SignalWinProbabilityScript,
	SignalBackupQuality,
	SignalRedZoneOpportunity,
	SignalSnapCountPercentage,
	SignalLineMovement,
}

// Bounds is an inclusive [Low, High] clamp, encoded as a two-element list.
type Bounds struct {
	Low  float64
	High float64
}

// Clamp limits v to the bounds.
func (b Bounds) Clamp(v float64) float64 {
	return clip(v, b.Low, b.High)
}

// MarshalJSON encodes the bounds as [low, high].
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{b.Low, b.High})
}

// UnmarshalJSON decodes [low, high].
func (b *Bounds) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	return b.set(pair)
}

// MarshalYAML encodes the bounds as [low, high].
func (b Bounds) MarshalYAML() (interface{}, error) {
	return []float64{b.Low, b.High}, nil
}

// UnmarshalYAML decodes [low, high].
func (b *Bounds) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	return b.set(pair)
}

func (b *Bounds) set(pair []float64) error {
	if len(pair) != 2 {
		return fmt.Errorf("bounds must have 2 values, got %d", len(pair))
	}
	b.Low, b.High = pair[0], pair[1]
	return nil
}

// Config configures the composite provider.
type Config struct {
	Weights               map[string]float64   `json:"weights" yaml:"weights"`
	Caps                  map[string]Bounds    `json:"caps" yaml:"caps"`
	ResidualScale         float64              `json:"residual_scale" yaml:"residual_scale"`
	UsageScale            float64              `json:"usage_scale" yaml:"usage_scale"`
	ScheduleHorizonWeeks  int                  `json:"schedule_horizon_weeks" yaml:"schedule_horizon_weeks"`
	EnableExtendedSignals bool                 `json:"enable_extended_signals" yaml:"enable_extended_signals"`
	ExternalFeeds         feeds.ExternalConfig `json:"external_feeds" yaml:"external_feeds"`
	Runtime               feeds.RuntimeConfig  `json:"runtime" yaml:"runtime"`
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			SignalProjectionResidual:   0.20,
			SignalUsageTrend:           0.14,
			SignalInjuryOpportunity:    0.12,
			SignalMatchupUnit:          0.10,
			SignalGameScript:           0.08,
			SignalVolatilityAware:      0.06,
			SignalWeatherVenue:         0.06,
			SignalMarketSentiment:      0.08,
			SignalWaiverReplacement:    0.06,
			SignalScheduleCluster:      0.10,
			SignalPlayerTiltLeverage:   0.05,
			SignalVegasProps:           0.08,
			SignalWinProbabilityScript: 0.05,
			SignalBackupQuality:        0.03,
			SignalRedZoneOpportunity:   0.05,
			SignalSnapCountPercentage:  0.05,
			SignalLineMovement:         0.04,
		},
		Caps: map[string]Bounds{
			SignalProjectionResidual:   {-4.0, 4.0},
			SignalUsageTrend:           {-3.0, 3.0},
			SignalInjuryOpportunity:    {-3.0, 3.0},
			SignalMatchupUnit:          {-2.0, 2.0},
			SignalGameScript:           {-1.5, 1.5},
			SignalVolatilityAware:      {-1.5, 1.5},
			SignalWeatherVenue:         {-1.5, 1.5},
			SignalMarketSentiment:      {-1.5, 1.5},
			SignalWaiverReplacement:    {-2.0, 2.0},
			SignalScheduleCluster:      {-1.5, 1.5},
			SignalPlayerTiltLeverage:   {-1.5, 1.5},
			SignalVegasProps:           {-2.0, 2.0},
			SignalWinProbabilityScript: {-1.5, 1.5},
			SignalBackupQuality:        {-0.5, 0.5},
			SignalRedZoneOpportunity:   {-1.0, 1.0},
			SignalSnapCountPercentage:  {-1.0, 1.0},
			SignalLineMovement:         {-1.0, 1.0},
			CapTotalAdjustment:         {-6.0, 6.0},
			CapMatchupSignalMultiplier: {0.9, 1.1},
			CapMatchupMultiplier:       {0.85, 1.15},
		},
		ResidualScale:        0.35,
		UsageScale:           0.6,
		ScheduleHorizonWeeks: 3,
		Runtime:              feeds.DefaultRuntimeConfig(),
	}
}

// LoadConfig reads a YAML or JSON provider config on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read provider config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Normalize fills missing defaults, drops unknown weight and cap names and
// validates the result. Returned warnings name every dropped key.
func (c Config) Normalize() (Config, []string, error) {
	def := DefaultConfig()
	out := c
	var warnings []string

	out.Weights = make(map[string]float64, len(def.Weights))
	for name, w := range def.Weights {
		out.Weights[name] = w
	}
	for _, name := range sortedNames(c.Weights) {
		if _, known := def.Weights[name]; !known {
			warnings = append(warnings, "unknown_weight:"+name)
			continue
		}
		out.Weights[name] = c.Weights[name]
	}

	out.Caps = make(map[string]Bounds, len(def.Caps))
	for name, b := range def.Caps {
		out.Caps[name] = b
	}
	for _, name := range sortedNames(c.Caps) {
		if _, known := def.Caps[name]; !known {
			warnings = append(warnings, "unknown_cap:"+name)
			continue
		}
		b := c.Caps[name]
		if b.Low > b.High {
			return out, warnings, fmt.Errorf("%w: cap %s low %.4f > high %.4f", ErrInvalidConfig, name, b.Low, b.High)
		}
		out.Caps[name] = b
	}

	if out.ScheduleHorizonWeeks < 1 {
		out.ScheduleHorizonWeeks = 1
	}
	if out.Runtime.CacheTTLSeconds < 0 {
		out.Runtime.CacheTTLSeconds = 0
	}
	if out.Runtime.Retries < 0 {
		out.Runtime.Retries = 0
	}
	out.Runtime.CanonicalContractMode = feeds.NormalizeContractMode(out.Runtime.CanonicalContractMode)

	if _, _, err := feeds.ResolveCutoff(out.Runtime.AsOf, out.Runtime.AsOfDate); err != nil {
		return out, warnings, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return out, warnings, nil
}

// ActiveSignals returns the signals computed under this config.
func (c Config) ActiveSignals() []string {
	names := append([]string{}, BaseSignals...)
	if c.EnableExtendedSignals {
		names = append(names, ExtendedSignals...)
	}
	return names
}

// NormalizedWeights floors weights at zero and rescales them to sum to 1
// over the active signals. A non-positive total yields equal weights.
func (c Config) NormalizedWeights() map[string]float64 {
	active := c.ActiveSignals()
	out := make(map[string]float64, len(active))
	sum := 0.0
	for _, name := range active {
		w := c.Weights[name]
		if w < 0 {
			w = 0
		}
		out[name] = w
		sum += w
	}
	if sum <= 0 {
		for _, name := range active {
			out[name] = 1.0 / float64(len(active))
		}
		return out
	}
	for name := range out {
		out[name] /= sum
	}
	return out
}
