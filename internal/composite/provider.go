// Package composite implements the multi-feed alpha signal provider.
package composite

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/feeds"
	"fantasy-alpha-lab/internal/observability"
	"fantasy-alpha-lab/internal/signals"
	"fantasy-alpha-lab/internal/storage"
	"fantasy-alpha-lab/internal/storage/jsonl"
)

// Options configures Provider collaborators.
type Options struct {
	// Fetchers overrides the feed clients by feed name. Missing feeds get a
	// feeds.Client built from the config.
	Fetchers map[string]feeds.Fetcher

	// Snapshots overrides the snapshot log. When nil and snapshots are
	// enabled, a JSONL log under Runtime.SnapshotDir is used.
	Snapshots storage.FeedSnapshotStore

	Logger zerolog.Logger
	Now    func() time.Time
}

// Diagnostics is the per-player signal breakdown of the last evaluation.
type Diagnostics struct {
	Player                 string             `json:"player"`
	TeamID                 int                `json:"team_id"`
	Position               string             `json:"position"`
	NextGenMetrics         map[string]any     `json:"nextgen_metrics"`
	Signals                map[string]float64 `json:"signals"`
	WeightedSignals        map[string]float64 `json:"weighted_signals"`
	WeightedSum            float64            `json:"weighted_sum"`
	FinalAdjustment        float64            `json:"final_adjustment"`
	MatchupMultiplier      float64            `json:"matchup_multiplier"`
	InjuryStatus           string             `json:"injury_status"`
	ExtendedSignalsEnabled bool               `json:"extended_signals_enabled"`
}

func (d Diagnostics) clone() Diagnostics {
	out := d
	out.NextGenMetrics, _ = feeds.DeepCopy(d.NextGenMetrics).(map[string]any)
	out.Signals = cloneFloats(d.Signals)
	out.WeightedSignals = cloneFloats(d.WeightedSignals)
	return out
}

// Summary aggregates the last evaluation.
type Summary struct {
	PlayersEvaluated        int      `json:"players_evaluated"`
	PlayersWithNonZeroAlpha int      `json:"players_with_non_zero_alpha"`
	CapHitsTotalAdjustment  int      `json:"cap_hits_total_adjustment"`
	QualityFlags            []string `json:"quality_flags"`
	ActiveSignals           []string `json:"active_signals"`
	ExtendedSignalsEnabled  bool     `json:"extended_signals_enabled"`
}

func (s Summary) clone() Summary {
	out := s
	out.QualityFlags = append([]string{}, s.QualityFlags...)
	out.ActiveSignals = append([]string{}, s.ActiveSignals...)
	return out
}

// weekPayload is the assembled signal output for one (league, year, week).
type weekPayload struct {
	Adjustments map[int]float64
	Injuries    map[int]string
	Matchups    map[int]float64
	Diagnostics map[int]Diagnostics
	Warnings    []string
	Summary     Summary
}

func (w *weekPayload) clone() *weekPayload {
	out := &weekPayload{
		Adjustments: cloneFloatsByID(w.Adjustments),
		Injuries:    make(map[int]string, len(w.Injuries)),
		Matchups:    cloneFloatsByID(w.Matchups),
		Diagnostics: make(map[int]Diagnostics, len(w.Diagnostics)),
		Warnings:    append([]string{}, w.Warnings...),
		Summary:     w.Summary.clone(),
	}
	for k, v := range w.Injuries {
		out.Injuries[k] = v
	}
	for k, v := range w.Diagnostics {
		out.Diagnostics[k] = v.clone()
	}
	return out
}

type weekKey struct {
	leagueID, year, week int
}

type feedKey struct {
	feed string
	weekKey
}

type cachedWeek struct {
	payload *weekPayload
	at      time.Time
}

type cachedFeed struct {
	env feeds.Envelope
	at  time.Time
}

// Provider blends external feeds and league state into per-player
// adjustments, injury overrides and matchup multipliers.
type Provider struct {
	cfg       Config
	weights   map[string]float64
	fetchers  map[string]feeds.Fetcher
	snapshots storage.FeedSnapshotStore
	cutoff    time.Time
	hasCutoff bool
	logger    zerolog.Logger
	now       func() time.Time

	mu              sync.Mutex
	weekCache       map[weekKey]cachedWeek
	feedCache       map[feedKey]cachedFeed
	lastDiagnostics map[int]Diagnostics
	lastWarnings    []string
	lastSummary     Summary
	configWarnings  []string
}

var _ signals.Provider = (*Provider)(nil)

// New validates cfg and builds a provider.
func New(cfg Config, opts Options) (*Provider, error) {
	normalized, warnings, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	cutoff, hasCutoff, err := feeds.ResolveCutoff(normalized.Runtime.AsOf, normalized.Runtime.AsOfDate)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		cfg:            normalized,
		weights:        normalized.NormalizedWeights(),
		fetchers:       make(map[string]feeds.Fetcher, len(feeds.AllFeeds)),
		snapshots:      opts.Snapshots,
		cutoff:         cutoff,
		hasCutoff:      hasCutoff,
		logger:         opts.Logger,
		now:            opts.Now,
		weekCache:      make(map[weekKey]cachedWeek),
		feedCache:      make(map[feedKey]cachedFeed),
		configWarnings: warnings,
	}
	if p.now == nil {
		p.now = time.Now
	}
	for _, name := range feeds.AllFeeds {
		if f, ok := opts.Fetchers[name]; ok && f != nil {
			p.fetchers[name] = f
			continue
		}
		p.fetchers[name] = feeds.NewClient(name, normalized.ExternalFeeds, normalized.Runtime, feeds.WithClock(p.now))
	}
	if p.snapshots == nil && normalized.Runtime.SnapshotEnabled {
		retention := time.Duration(normalized.Runtime.SnapshotRetentionDays) * 24 * time.Hour
		p.snapshots = jsonl.NewFeedSnapshotStore(normalized.Runtime.SnapshotDir, retention, jsonl.WithClock(p.now))
	}
	for _, w := range warnings {
		p.logger.Warn().Str("warning", w).Msg("Provider config key ignored")
	}
	return p, nil
}

// Config returns the normalized configuration.
func (p *Provider) Config() Config {
	return p.cfg
}

// PlayerAdjustments returns additive per-player point adjustments.
func (p *Provider) PlayerAdjustments(ctx context.Context, league *domain.League, week int) (map[int]float64, error) {
	payload, err := p.weekPayload(ctx, league, week)
	if err != nil {
		return nil, err
	}
	return payload.Adjustments, nil
}

// InjuryOverrides returns normalized statuses for non-healthy players.
func (p *Provider) InjuryOverrides(ctx context.Context, league *domain.League, week int) (map[int]string, error) {
	payload, err := p.weekPayload(ctx, league, week)
	if err != nil {
		return nil, err
	}
	return payload.Injuries, nil
}

// MatchupOverrides returns per-player matchup multipliers.
func (p *Provider) MatchupOverrides(ctx context.Context, league *domain.League, week int) (map[int]float64, error) {
	payload, err := p.weekPayload(ctx, league, week)
	if err != nil {
		return nil, err
	}
	return payload.Matchups, nil
}

// LastDiagnostics returns a copy of the per-player breakdown of the most
// recent evaluation.
func (p *Provider) LastDiagnostics() map[int]Diagnostics {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]Diagnostics, len(p.lastDiagnostics))
	for k, v := range p.lastDiagnostics {
		out[k] = v.clone()
	}
	return out
}

// LastWarnings returns the warnings of the most recent evaluation.
func (p *Provider) LastWarnings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.lastWarnings...)
}

// LastSummary returns the summary of the most recent evaluation.
func (p *Provider) LastSummary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSummary.clone()
}

// ConfigWarnings lists config keys dropped during normalization.
func (p *Provider) ConfigWarnings() []string {
	return append([]string{}, p.configWarnings...)
}

func (p *Provider) ttl() time.Duration {
	return time.Duration(p.cfg.Runtime.CacheTTLSeconds) * time.Second
}

func (p *Provider) weekPayload(ctx context.Context, league *domain.League, week int) (*weekPayload, error) {
	key := weekKey{week: week}
	if league != nil {
		key.leagueID, key.year = league.LeagueID, league.Year
	}
	ttl := p.ttl()

	p.mu.Lock()
	if entry, ok := p.weekCache[key]; ok && ttl > 0 && p.now().Sub(entry.at) <= ttl {
		p.remember(entry.payload)
		out := entry.payload.clone()
		p.mu.Unlock()
		observability.RecordCacheHit("week")
		return out, nil
	}
	p.mu.Unlock()

	payload, err := p.buildWeek(ctx, league, week)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.weekCache[key] = cachedWeek{payload: payload.clone(), at: p.now()}
	p.remember(payload)
	p.mu.Unlock()
	return payload, nil
}

// remember stores the last-call views. Callers hold p.mu.
func (p *Provider) remember(payload *weekPayload) {
	c := payload.clone()
	p.lastDiagnostics = c.Diagnostics
	p.lastWarnings = c.Warnings
	p.lastSummary = c.Summary
}

func cloneFloats(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFloatsByID(m map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
