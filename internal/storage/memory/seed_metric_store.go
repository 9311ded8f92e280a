package memory

import (
	"context"
	"sort"
	"sync"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/storage"
)

type seedKey struct {
	runID string
	seed  int
}

// SeedMetricStore is an in-memory implementation of storage.SeedMetricStore.
type SeedMetricStore struct {
	mu   sync.RWMutex
	data map[seedKey]*domain.SeedResult
}

// NewSeedMetricStore creates a new in-memory seed metric store.
func NewSeedMetricStore() *SeedMetricStore {
	return &SeedMetricStore{
		data: make(map[seedKey]*domain.SeedResult),
	}
}

// InsertBulk adds multiple seed rows atomically. Fails entire batch on any duplicate.
func (s *SeedMetricStore) InsertBulk(_ context.Context, rows []*domain.SeedResult) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[seedKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := seedKey{runID: r.RunID, seed: r.Seed}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		copy := *r
		s.data[seedKey{runID: r.RunID, seed: r.Seed}] = &copy
	}
	return nil
}

// GetByRunID retrieves the seed rows of a run, ordered by seed ASC.
func (s *SeedMetricStore) GetByRunID(_ context.Context, runID string) ([]*domain.SeedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SeedResult
	for key, r := range s.data {
		if key.runID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seed < result[j].Seed
	})
	return result, nil
}

var _ storage.SeedMetricStore = (*SeedMetricStore)(nil)
