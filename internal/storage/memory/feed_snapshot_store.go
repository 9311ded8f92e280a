package memory

import (
	"context"
	"sync"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/feeds"
	"fantasy-alpha-lab/internal/storage"
)

// FeedSnapshotStore is an in-memory implementation of storage.FeedSnapshotStore.
// It keeps every appended record; retention is not applied.
type FeedSnapshotStore struct {
	mu   sync.RWMutex
	data map[domain.FeedSnapshotKey][]*domain.FeedSnapshot
}

// NewFeedSnapshotStore creates a new in-memory feed snapshot store.
func NewFeedSnapshotStore() *FeedSnapshotStore {
	return &FeedSnapshotStore{
		data: make(map[domain.FeedSnapshotKey][]*domain.FeedSnapshot),
	}
}

// Append records one observation.
func (s *FeedSnapshotStore) Append(_ context.Context, snap *domain.FeedSnapshot) ([]string, error) {
	if snap == nil {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snap.Key()
	s.data[key] = append(s.data[key], cloneSnapshot(snap))
	return nil, nil
}

// Load retrieves the observations for a key in append order.
func (s *FeedSnapshotStore) Load(_ context.Context, key domain.FeedSnapshotKey) ([]*domain.FeedSnapshot, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.data[key.Normalized()]
	result := make([]*domain.FeedSnapshot, 0, len(records))
	for _, rec := range records {
		result = append(result, cloneSnapshot(rec))
	}
	return result, nil, nil
}

func cloneSnapshot(snap *domain.FeedSnapshot) *domain.FeedSnapshot {
	c := *snap
	c.FeedName = snap.Key().FeedName
	if snap.Payload != nil {
		c.Payload = feeds.DeepCopy(snap.Payload).(map[string]any)
	}
	return &c
}

var _ storage.FeedSnapshotStore = (*FeedSnapshotStore)(nil)
