package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/storage"
)

// ABRunStore is an in-memory implementation of storage.ABRunStore.
type ABRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ABRun // keyed by run_id
}

// NewABRunStore creates a new in-memory A/B run store.
func NewABRunStore() *ABRunStore {
	return &ABRunStore{
		data: make(map[string]*domain.ABRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ABRunStore) Insert(_ context.Context, run *domain.ABRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = cloneRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ABRunStore) GetByID(_ context.Context, runID string) (*domain.ABRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(run), nil
}

// ListByLeague retrieves runs for a league and team, newest first.
func (s *ABRunStore) ListByLeague(_ context.Context, leagueID, teamID int) ([]*domain.ABRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ABRun
	for _, run := range s.data {
		if run.LeagueID == leagueID && run.TeamID == teamID {
			result = append(result, cloneRun(run))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID > result[j].RunID
	})

	return result, nil
}

func cloneRun(run *domain.ABRun) *domain.ABRun {
	c := *run
	c.Manifest = bytes.Clone(run.Manifest)
	c.Summary = bytes.Clone(run.Summary)
	c.Decision = bytes.Clone(run.Decision)
	return &c
}

var _ storage.ABRunStore = (*ABRunStore)(nil)
