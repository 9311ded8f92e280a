// Package alpha projects per-player weekly scoring distributions from a
// baseline prior, recent form and external signal adjustments.
package alpha

// Config controls the projection model.
type Config struct {
	RecentWeeks         int                `json:"recent_weeks" yaml:"recent_weeks"`
	ShrinkageK          float64            `json:"shrinkage_k" yaml:"shrinkage_k"`
	MatchupScale        float64            `json:"matchup_scale" yaml:"matchup_scale"`
	SimulationsDecision int                `json:"simulations_decision" yaml:"simulations_decision"`
	CandidatePoolSize   int                `json:"candidate_pool_size" yaml:"candidate_pool_size"`
	AlphaBlend          float64            `json:"alpha_blend" yaml:"alpha_blend"`
	InjuryPenalties     map[string]float64 `json:"injury_penalties" yaml:"injury_penalties"`
}

// DefaultConfig returns the default model configuration.
func DefaultConfig() Config {
	return Config{
		RecentWeeks:         4,
		ShrinkageK:          4.0,
		MatchupScale:        0.08,
		SimulationsDecision: 1200,
		CandidatePoolSize:   30,
		AlphaBlend:          0.35,
		InjuryPenalties: map[string]float64{
			"OUT":          0.0,
			"DOUBTFUL":     0.55,
			"QUESTIONABLE": 0.85,
			"P":            0.85,
			"SUSPENSION":   0.0,
			"IR":           0.0,
			"ACTIVE":       1.0,
			"NONE":         1.0,
		},
	}
}

// Overrides holds optional config values; nil fields keep the current value.
type Overrides struct {
	RecentWeeks         *int               `json:"recent_weeks,omitempty" yaml:"recent_weeks,omitempty"`
	ShrinkageK          *float64           `json:"shrinkage_k,omitempty" yaml:"shrinkage_k,omitempty"`
	MatchupScale        *float64           `json:"matchup_scale,omitempty" yaml:"matchup_scale,omitempty"`
	SimulationsDecision *int               `json:"simulations_decision,omitempty" yaml:"simulations_decision,omitempty"`
	CandidatePoolSize   *int               `json:"candidate_pool_size,omitempty" yaml:"candidate_pool_size,omitempty"`
	AlphaBlend          *float64           `json:"alpha_blend,omitempty" yaml:"alpha_blend,omitempty"`
	InjuryPenalties     map[string]float64 `json:"injury_penalties,omitempty" yaml:"injury_penalties,omitempty"`
}

// Apply returns a copy of c with the non-nil overrides applied.
// Injury penalties are merged key by key.
func (c Config) Apply(o Overrides) Config {
	out := c.Clone()
	if o.RecentWeeks != nil {
		out.RecentWeeks = *o.RecentWeeks
	}
	if o.ShrinkageK != nil {
		out.ShrinkageK = *o.ShrinkageK
	}
	if o.MatchupScale != nil {
		out.MatchupScale = *o.MatchupScale
	}
	if o.SimulationsDecision != nil {
		out.SimulationsDecision = *o.SimulationsDecision
	}
	if o.CandidatePoolSize != nil {
		out.CandidatePoolSize = *o.CandidatePoolSize
	}
	if o.AlphaBlend != nil {
		out.AlphaBlend = *o.AlphaBlend
	}
	for k, v := range o.InjuryPenalties {
		if out.InjuryPenalties == nil {
			out.InjuryPenalties = make(map[string]float64)
		}
		out.InjuryPenalties[k] = v
	}
	return out
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	if c.InjuryPenalties != nil {
		out.InjuryPenalties = make(map[string]float64, len(c.InjuryPenalties))
		for k, v := range c.InjuryPenalties {
			out.InjuryPenalties[k] = v
		}
	}
	return out
}
