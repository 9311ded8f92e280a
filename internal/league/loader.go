// Package league loads stored league snapshots from JSON or YAML files.
package league

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"fantasy-alpha-lab/internal/domain"
)

// ErrSnapshotNotFound is returned when no snapshot file exists for a season.
var ErrSnapshotNotFound = errors.New("league snapshot not found")

// snapshotExtensions are tried in order when resolving a season file.
var snapshotExtensions = []string{".yaml", ".yml", ".json"}

// snapshotFile is the on-disk layout. Week keys are decimal strings so the
// same document parses from JSON and YAML.
type snapshotFile struct {
	League     domain.League                `yaml:",inline"`
	BoxScores  map[string][]domain.BoxScore `yaml:"box_scores"`
	FreeAgents []*domain.Player             `yaml:"free_agents"`
}

// Source serves the per-week data of a stored snapshot.
type Source struct {
	boxScores  map[int][]domain.BoxScore
	freeAgents []*domain.Player
}

var _ domain.WeekSource = (*Source)(nil)

// BoxScores returns the stored matchups of a week; unknown weeks are empty.
func (s *Source) BoxScores(_ context.Context, week int) ([]domain.BoxScore, error) {
	stored := s.boxScores[week]
	out := make([]domain.BoxScore, 0, len(stored))
	for _, b := range stored {
		out = append(out, domain.BoxScore{
			HomeTeamID: b.HomeTeamID,
			AwayTeamID: b.AwayTeamID,
			HomeLineup: clonePlayers(b.HomeLineup),
			AwayLineup: clonePlayers(b.AwayLineup),
		})
	}
	return out, nil
}

// FreeAgents returns up to size stored free agents in file order.
// A size <= 0 returns the whole pool.
func (s *Source) FreeAgents(_ context.Context, _, size int) ([]*domain.Player, error) {
	pool := s.freeAgents
	if size > 0 && size < len(pool) {
		pool = pool[:size]
	}
	return clonePlayers(pool), nil
}

// Weeks returns the weeks with stored box scores, ascending.
func (s *Source) Weeks() []int {
	weeks := make([]int, 0, len(s.boxScores))
	for w := range s.boxScores {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// LoadFile reads one snapshot file and attaches its week source.
func LoadFile(path string) (*domain.League, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("read league snapshot: %w", err)
	}
	return Parse(data)
}

// Parse decodes a snapshot document.
func Parse(data []byte) (*domain.League, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse league snapshot: %w", err)
	}

	src := &Source{
		boxScores:  make(map[int][]domain.BoxScore, len(f.BoxScores)),
		freeAgents: f.FreeAgents,
	}
	for key, scores := range f.BoxScores {
		week, err := strconv.Atoi(key)
		if err != nil || week < 1 {
			return nil, fmt.Errorf("parse league snapshot: invalid box score week %q", key)
		}
		src.boxScores[week] = scores
	}

	league := f.League
	for i, t := range league.Teams {
		if t == nil {
			return nil, fmt.Errorf("parse league snapshot: team %d is empty", i)
		}
	}
	league.Source = src
	return &league, nil
}

// Load resolves <dir>/<leagueID>/<year>.{yaml,yml,json}.
func Load(dir string, leagueID, year int) (*domain.League, error) {
	base := filepath.Join(dir, strconv.Itoa(leagueID), strconv.Itoa(year))
	for _, ext := range snapshotExtensions {
		path := base + ext
		if _, err := os.Stat(path); err != nil {
			continue
		}
		league, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if league.LeagueID == 0 {
			league.LeagueID = leagueID
		}
		if league.Year == 0 {
			league.Year = year
		}
		if league.LeagueID != leagueID {
			return nil, fmt.Errorf("league snapshot %s holds league %d, want %d", path, league.LeagueID, leagueID)
		}
		return league, nil
	}
	return nil, fmt.Errorf("%w: league %d season %d under %s", ErrSnapshotNotFound, leagueID, year, dir)
}

// Loader returns a season loader bound to a snapshot directory and league.
func Loader(dir string, leagueID int) func(ctx context.Context, year int) (*domain.League, error) {
	return func(ctx context.Context, year int) (*domain.League, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Load(dir, leagueID, year)
	}
}

func clonePlayers(players []*domain.Player) []*domain.Player {
	if players == nil {
		return nil
	}
	out := make([]*domain.Player, 0, len(players))
	for _, p := range players {
		if p == nil {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}
