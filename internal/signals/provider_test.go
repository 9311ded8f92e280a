package signals

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"fantasy-alpha-lab/internal/domain"
)

type failingProvider struct{}

func (failingProvider) PlayerAdjustments(context.Context, *domain.League, int) (map[int]float64, error) {
	return nil, errors.New("boom")
}

func (failingProvider) InjuryOverrides(context.Context, *domain.League, int) (map[int]string, error) {
	return nil, errors.New("boom")
}

func (failingProvider) MatchupOverrides(context.Context, *domain.League, int) (map[int]float64, error) {
	return map[int]float64{1: 1.1}, nil
}

func TestSafeProvider_SwallowsErrors(t *testing.T) {
	p := NewSafeProvider(failingProvider{}, zerolog.Nop())
	ctx := context.Background()

	adj, err := p.PlayerAdjustments(ctx, &domain.League{}, 3)
	if err != nil || adj == nil || len(adj) != 0 {
		t.Errorf("expected empty adjustments, got %v, %v", adj, err)
	}
	inj, err := p.InjuryOverrides(ctx, &domain.League{}, 3)
	if err != nil || inj == nil || len(inj) != 0 {
		t.Errorf("expected empty injuries, got %v, %v", inj, err)
	}
	m, err := p.MatchupOverrides(ctx, &domain.League{}, 3)
	if err != nil || m[1] != 1.1 {
		t.Errorf("expected passthrough matchups, got %v, %v", m, err)
	}
}

func TestSafeProvider_NilIsNull(t *testing.T) {
	p := NewSafeProvider(nil, zerolog.Nop())
	if _, ok := p.Inner().(NullProvider); !ok {
		t.Errorf("nil provider should wrap NullProvider, got %T", p.Inner())
	}
	adj, err := p.PlayerAdjustments(context.Background(), &domain.League{}, 1)
	if err != nil || len(adj) != 0 {
		t.Errorf("unexpected %v, %v", adj, err)
	}
}
