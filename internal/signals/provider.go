// Package signals defines the external signal provider capability consumed
// by the simulator.
package signals

import (
	"context"

	"github.com/rs/zerolog"

	"fantasy-alpha-lab/internal/domain"
)

// Provider supplies per-player adjustments for a league week.
type Provider interface {
	// PlayerAdjustments returns additive weekly point adjustments.
	PlayerAdjustments(ctx context.Context, league *domain.League, week int) (map[int]float64, error)

	// InjuryOverrides returns normalized statuses for non-healthy players.
	InjuryOverrides(ctx context.Context, league *domain.League, week int) (map[int]string, error)

	// MatchupOverrides returns multiplicative matchup factors.
	MatchupOverrides(ctx context.Context, league *domain.League, week int) (map[int]float64, error)
}

// NullProvider returns empty maps for every call.
type NullProvider struct{}

var _ Provider = NullProvider{}

func (NullProvider) PlayerAdjustments(context.Context, *domain.League, int) (map[int]float64, error) {
	return map[int]float64{}, nil
}

func (NullProvider) InjuryOverrides(context.Context, *domain.League, int) (map[int]string, error) {
	return map[int]string{}, nil
}

func (NullProvider) MatchupOverrides(context.Context, *domain.League, int) (map[int]float64, error) {
	return map[int]float64{}, nil
}

// SafeProvider wraps a provider and converts every error into an empty map.
type SafeProvider struct {
	inner  Provider
	logger zerolog.Logger
}

var _ Provider = (*SafeProvider)(nil)

// NewSafeProvider wraps p; a nil p behaves like NullProvider.
func NewSafeProvider(p Provider, logger zerolog.Logger) *SafeProvider {
	if p == nil {
		p = NullProvider{}
	}
	return &SafeProvider{inner: p, logger: logger}
}

// Inner returns the wrapped provider.
func (s *SafeProvider) Inner() Provider {
	return s.inner
}

func (s *SafeProvider) PlayerAdjustments(ctx context.Context, league *domain.League, week int) (map[int]float64, error) {
	out, err := s.inner.PlayerAdjustments(ctx, league, week)
	if err != nil || out == nil {
		s.warn(err, "player_adjustments", week)
		return map[int]float64{}, nil
	}
	return out, nil
}

func (s *SafeProvider) InjuryOverrides(ctx context.Context, league *domain.League, week int) (map[int]string, error) {
	out, err := s.inner.InjuryOverrides(ctx, league, week)
	if err != nil || out == nil {
		s.warn(err, "injury_overrides", week)
		return map[int]string{}, nil
	}
	return out, nil
}

func (s *SafeProvider) MatchupOverrides(ctx context.Context, league *domain.League, week int) (map[int]float64, error) {
	out, err := s.inner.MatchupOverrides(ctx, league, week)
	if err != nil || out == nil {
		s.warn(err, "matchup_overrides", week)
		return map[int]float64{}, nil
	}
	return out, nil
}

func (s *SafeProvider) warn(err error, call string, week int) {
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Str("call", call).Int("week", week).Msg("signal provider failed, using empty signals")
}
