package alpha

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"fantasy-alpha-lab/internal/domain"
)

// Component keys reported on every projection.
const (
	ComponentPrior         = "prior"
	ComponentRecent        = "recent"
	ComponentMarketAdj     = "market_adj"
	ComponentProviderAdj   = "provider_adj"
	ComponentInjuryFactor  = "injury_factor"
	ComponentMatchupFactor = "matchup_factor"
	ComponentWeightRecent  = "w_recent"
)

const (
	minStd           = 2.0
	injuryStdPremium = 2.5
)

// Signals carries provider output keyed by player id.
type Signals struct {
	Adjustments map[int]float64
	Injuries    map[int]string
	Matchups    map[int]float64
}

// ProjectPlayer builds the weekly projection for one player.
func ProjectPlayer(p *domain.Player, cfg Config, sig Signals) domain.PlayerProjection {
	prior := p.WeeklyPrior()
	recent := p.RecentPoints(cfg.RecentWeeks, 0)
	n := float64(len(recent))

	recentAvg := prior
	if len(recent) > 0 {
		recentAvg = stat.Mean(recent, nil)
	}

	wRecent := n / (n + math.Max(0.1, cfg.ShrinkageK))
	wPrior := 1.0 - wRecent

	marketAdj := (p.StartedPct() - 50.0) * 0.03
	base := wPrior*prior + wRecent*recentAvg + marketAdj

	injury := injuryFactor(p, cfg, sig.Injuries)
	matchup := matchupFactor(p, cfg, sig.Matchups)
	providerAdj := sig.Adjustments[p.ID]

	mean := math.Max(0, (base+providerAdj)*injury*matchup)

	var std float64
	switch {
	case len(recent) >= 2:
		std = stat.StdDev(recent, nil)
	case len(recent) == 1:
		std = math.Abs(recent[0]) * 0.25
	default:
		std = math.Max(minStd, prior*0.35)
	}
	std = math.Max(minStd, std)
	if injury < 1.0 {
		std += injuryStdPremium
	}

	confidence := clip(n/math.Max(1, float64(cfg.RecentWeeks))*injury, 0.05, 0.99)

	return domain.PlayerProjection{
		PlayerID:   p.ID,
		WeeklyMean: mean,
		WeeklyStd:  std,
		Confidence: confidence,
		Components: map[string]float64{
			ComponentPrior:         prior,
			ComponentRecent:        recentAvg,
			ComponentMarketAdj:     marketAdj,
			ComponentProviderAdj:   providerAdj,
			ComponentInjuryFactor:  injury,
			ComponentMatchupFactor: matchup,
			ComponentWeightRecent:  wRecent,
		},
	}
}

// ProjectPlayers projects every player; later duplicates overwrite earlier ones.
func ProjectPlayers(players []*domain.Player, cfg Config, sig Signals) map[int]domain.PlayerProjection {
	out := make(map[int]domain.PlayerProjection, len(players))
	for _, p := range players {
		if p == nil {
			continue
		}
		proj := ProjectPlayer(p, cfg, sig)
		out[proj.PlayerID] = proj
	}
	return out
}

func injuryFactor(p *domain.Player, cfg Config, overrides map[int]string) float64 {
	status, ok := overrides[p.ID]
	if !ok {
		status = p.InjuryStatus
	}
	key := strings.ToUpper(status)
	if key == "" {
		key = domain.StatusNone
	}
	if f, ok := cfg.InjuryPenalties[key]; ok {
		return f
	}
	if p.Injured {
		if f, ok := cfg.InjuryPenalties[domain.StatusQuestionable]; ok {
			return f
		}
		return 0.85
	}
	return 1.0
}

func matchupFactor(p *domain.Player, cfg Config, overrides map[int]float64) float64 {
	if f, ok := overrides[p.ID]; ok {
		return clip(f, 0.7, 1.3)
	}
	if p.ProPosRank <= 0 {
		return 1.0
	}
	centered := (p.ProPosRank - 17.0) / 16.0
	return clip(1.0+cfg.MatchupScale*centered, 0.85, 1.15)
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
