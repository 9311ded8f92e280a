// Package simulation implements the Monte Carlo season and playoff engine,
// the alpha-aware lineup optimizer and roster move analysis.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"fantasy-alpha-lab/internal/alpha"
	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/signals"
)

// Simulator errors
var (
	ErrUnsupportedLeague = errors.New("simulator supports football leagues only")
	ErrNotPreseason      = errors.New("draft strategy analysis only available in preseason mode")
	ErrUnknownTeam       = errors.New("unknown team")
)

const (
	defaultNumSimulations = 1000
	defaultRatingsBlend   = 0.65
	defaultTeamMean       = 90.0
	minTeamStd            = 7.5
)

// Ratings maps team id to its weekly scoring distribution.
type Ratings map[int]domain.TeamRating

// Clone returns a copy of r.
func (r Ratings) Clone() Ratings {
	out := make(Ratings, len(r))
	for id, rating := range r {
		out[id] = rating
	}
	return out
}

// Options contains configuration for creating a Simulator.
type Options struct {
	League         *domain.League
	NumSimulations int // 0 means 1000
	Preseason      bool
	Seed           *int64   // nil seeds from the clock
	RatingsBlend   *float64 // nil means 0.65; clamped to [0,1]
	AlphaMode      bool
	AlphaConfig    *alpha.Config
	Provider       signals.Provider
	Logger         zerolog.Logger
}

// Simulator runs seeded Monte Carlo simulations over one league snapshot.
// It owns its random generator and is not safe for concurrent use.
type Simulator struct {
	league         *domain.League
	teams          map[int]*domain.Team
	numSimulations int
	preseason      bool
	ratingsBlend   float64
	rng            *rand.Rand
	schedule       []domain.ScheduleGame
	ratings        Ratings

	alphaMode   bool
	alphaConfig alpha.Config
	provider    signals.Provider
	logger      zerolog.Logger

	projCache  map[int]domain.PlayerProjection
	cachedWeek int
}

// New validates the league shape and derives the schedule and ratings.
func New(opts Options) (*Simulator, error) {
	if opts.League == nil {
		return nil, fmt.Errorf("%w: league is nil", ErrUnsupportedLeague)
	}
	if err := validateLeagueShape(opts.League); err != nil {
		return nil, err
	}
	if opts.NumSimulations < 0 {
		return nil, fmt.Errorf("num simulations must be non-negative, got %d", opts.NumSimulations)
	}

	numSims := opts.NumSimulations
	if numSims == 0 {
		numSims = defaultNumSimulations
	}
	blend := defaultRatingsBlend
	if opts.RatingsBlend != nil {
		blend = math.Max(0, math.Min(1, *opts.RatingsBlend))
	}
	seed := time.Now().UnixNano()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	cfg := alpha.DefaultConfig()
	if opts.AlphaConfig != nil {
		cfg = opts.AlphaConfig.Clone()
	}

	s := &Simulator{
		league:         opts.League,
		teams:          make(map[int]*domain.Team, len(opts.League.Teams)),
		numSimulations: numSims,
		preseason:      opts.Preseason,
		ratingsBlend:   blend,
		rng:            rand.New(rand.NewSource(seed)),
		alphaMode:      opts.AlphaMode,
		alphaConfig:    cfg,
		provider:       signals.NewSafeProvider(opts.Provider, opts.Logger),
		logger:         opts.Logger,
	}
	for _, t := range opts.League.Teams {
		s.teams[t.ID] = t
	}
	s.schedule = s.remainingSchedule()
	s.ratings = s.teamRatings()

	s.logger.Debug().
		Int("league_id", opts.League.LeagueID).
		Int("teams", len(opts.League.Teams)).
		Int("games", len(s.schedule)).
		Bool("alpha_mode", s.alphaMode).
		Msg("simulator ready")
	return s, nil
}

// validateLeagueShape rejects snapshots that are not football leagues.
func validateLeagueShape(l *domain.League) error {
	switch strings.ToLower(strings.TrimSpace(l.Sport)) {
	case "", "nfl", "football":
	default:
		return fmt.Errorf("%w: sport %q", ErrUnsupportedLeague, l.Sport)
	}
	for i, t := range l.Teams {
		if t == nil {
			return fmt.Errorf("%w: team %d is nil", ErrUnsupportedLeague, i)
		}
		if len(t.Schedule) > 0 && (t.Scores == nil || t.Outcomes == nil) {
			return fmt.Errorf("%w: team %d has a schedule but is missing scores or outcomes", ErrUnsupportedLeague, t.ID)
		}
	}
	return nil
}

// League returns the league snapshot.
func (s *Simulator) League() *domain.League {
	return s.league
}

// AlphaMode reports whether the simulator uses alpha projections.
func (s *Simulator) AlphaMode() bool {
	return s.alphaMode
}

// NumSimulations returns the configured iteration count.
func (s *Simulator) NumSimulations() int {
	return s.numSimulations
}

// AlphaConfig returns a copy of the projection model config.
func (s *Simulator) AlphaConfig() alpha.Config {
	return s.alphaConfig.Clone()
}

// Schedule returns the remaining games sorted by week.
func (s *Simulator) Schedule() []domain.ScheduleGame {
	return append([]domain.ScheduleGame(nil), s.schedule...)
}

// TeamRatings returns a copy of the canonical baseline ratings.
func (s *Simulator) TeamRatings() Ratings {
	return s.ratings.Clone()
}

func (s *Simulator) regGames() int {
	return max(1, s.league.RegSeasonCount())
}

func (s *Simulator) currentWeek() int {
	return max(1, s.league.CurrentWeek)
}

func (s *Simulator) playoffSpots() int {
	if n := s.league.Settings.PlayoffTeamCount; n > 0 {
		return n
	}
	return 4
}

type gameKey struct {
	week, lo, hi int
}

// remainingSchedule lists undecided games (every game in preseason),
// deduplicated by week and team pair.
func (s *Simulator) remainingSchedule() []domain.ScheduleGame {
	startWeek := 1
	if !s.preseason {
		startWeek = s.currentWeek()
	}

	var games []domain.ScheduleGame
	seen := make(map[gameKey]struct{})
	for _, team := range s.league.Teams {
		for idx, opponent := range team.Schedule {
			week := idx + 1
			if week < startWeek {
				continue
			}
			outcome := domain.OutcomeUndecided
			if idx < len(team.Outcomes) {
				outcome = team.Outcomes[idx]
			}
			if !s.preseason && outcome != domain.OutcomeUndecided {
				continue
			}
			if opponent == team.ID {
				continue
			}
			if _, ok := s.teams[opponent]; !ok {
				continue
			}
			key := gameKey{week: week, lo: min(team.ID, opponent), hi: max(team.ID, opponent)}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			games = append(games, domain.ScheduleGame{Week: week, Team1: team.ID, Team2: opponent})
		}
	}
	sort.SliceStable(games, func(i, j int) bool { return games[i].Week < games[j].Week })
	return games
}

// playerSeasonProjection is the season-point projection used for ratings.
func (s *Simulator) playerSeasonProjection(p *domain.Player) float64 {
	if p == nil {
		return 0
	}
	return p.SeasonProjection(s.regGames())
}

func (s *Simulator) teamRatings() Ratings {
	reg := float64(s.regGames())
	out := make(Ratings, len(s.league.Teams))

	for _, team := range s.league.Teams {
		var seasonTotal float64
		for _, p := range team.Roster {
			seasonTotal += s.playerSeasonProjection(p)
		}
		var prior float64
		if seasonTotal > 0 {
			prior = seasonTotal / reg
		}

		observed := team.ObservedScores()
		var observedMean float64
		if len(observed) > 0 {
			observedMean = stat.Mean(observed, nil)
		}

		var mean float64
		switch {
		case s.preseason && prior > 0:
			mean = prior
		case s.preseason:
			mean = observedMean
		case len(observed) > 0 && prior > 0:
			mean = s.ratingsBlend*observedMean + (1-s.ratingsBlend)*prior
		case len(observed) > 0:
			mean = observedMean
		default:
			mean = prior
		}
		if mean <= 0 {
			mean = defaultTeamMean
			if team.PointsFor > 0 {
				mean = team.PointsFor / float64(max(1, len(observed)))
			}
		}

		var std float64
		switch {
		case len(observed) >= 2:
			std = stat.StdDev(observed, nil)
		case len(observed) == 1:
			std = math.Abs(observed[0]) * 0.2
		default:
			std = mean * 0.15
		}

		out[team.ID] = domain.TeamRating{
			Mean:        mean,
			Std:         math.Max(minTeamStd, std),
			RosterValue: s.rosterValue(team.Roster),
		}
	}
	return out
}

var positionValueWeights = map[string]float64{
	domain.PositionQB:  1.2,
	domain.PositionRB:  1.1,
	domain.PositionWR:  1.1,
	domain.PositionTE:  0.8,
	domain.PositionK:   0.5,
	domain.PositionDST: 0.7,
}

// rosterValue weights each player's season projection by positional importance.
func (s *Simulator) rosterValue(roster []*domain.Player) float64 {
	var value float64
	for _, p := range roster {
		if p == nil {
			continue
		}
		w, ok := positionValueWeights[p.NormalizedPosition()]
		if !ok {
			w = 1.0
		}
		value += s.playerSeasonProjection(p) * w
	}
	return value
}
