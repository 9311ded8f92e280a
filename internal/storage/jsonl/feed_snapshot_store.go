// Package jsonl implements storage on newline-delimited JSON files.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/storage"
)

// FeedSnapshotStore keeps one JSONL file per (league, year, week, feed)
// under root/<league>/<year>/week_<N>/<feed>.jsonl.
type FeedSnapshotStore struct {
	mu        sync.Mutex
	root      string
	retention time.Duration
	now       func() time.Time
}

// Option configures FeedSnapshotStore.
type Option func(*FeedSnapshotStore)

// WithClock overrides the clock used for retention pruning.
func WithClock(now func() time.Time) Option {
	return func(s *FeedSnapshotStore) {
		s.now = now
	}
}

// NewFeedSnapshotStore creates a store rooted at root. A non-positive
// retention keeps only records observed at or after the current instant.
func NewFeedSnapshotStore(root string, retention time.Duration, opts ...Option) *FeedSnapshotStore {
	s := &FeedSnapshotStore{
		root:      root,
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.FeedSnapshotStore = (*FeedSnapshotStore)(nil)

// Path returns the log file for key.
func (s *FeedSnapshotStore) Path(key domain.FeedSnapshotKey) string {
	key = key.Normalized()
	return filepath.Join(
		s.root,
		strconv.Itoa(key.LeagueID),
		strconv.Itoa(key.Year),
		"week_"+strconv.Itoa(key.Week),
		key.FeedName+".jsonl",
	)
}

// Load reads every well-formed record of a log. Unreadable files and bad
// lines are reported as warnings.
func (s *FeedSnapshotStore) Load(_ context.Context, key domain.FeedSnapshotKey) ([]*domain.FeedSnapshot, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, warnings := s.load(s.Path(key))
	return records, warnings, nil
}

func (s *FeedSnapshotStore) load(path string) ([]*domain.FeedSnapshot, []string) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*domain.FeedSnapshot{}, nil
	}
	if err != nil {
		return []*domain.FeedSnapshot{}, []string{fmt.Sprintf("snapshot_read_failed:%s:%v", path, err)}
	}

	records := []*domain.FeedSnapshot{}
	var warnings []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var raw any
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			warnings = append(warnings, fmt.Sprintf("snapshot_malformed_line:%s:%d", path, lineNumber))
			continue
		}
		if _, ok := raw.(map[string]any); !ok {
			warnings = append(warnings, fmt.Sprintf("snapshot_invalid_record_type:%s:%d", path, lineNumber))
			continue
		}
		var rec domain.FeedSnapshot
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			warnings = append(warnings, fmt.Sprintf("snapshot_invalid_record_type:%s:%d", path, lineNumber))
			continue
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, fmt.Sprintf("snapshot_read_failed:%s:%v", path, err))
	}
	return records, warnings
}

// Append adds snap to its log, drops records older than the retention
// window and atomically rewrites the file.
func (s *FeedSnapshotStore) Append(_ context.Context, snap *domain.FeedSnapshot) ([]string, error) {
	if snap == nil {
		return nil, storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(snap.Key())
	existing, warnings := s.load(path)
	all := append(existing, snap)

	retention := s.retention
	if retention < 0 {
		retention = 0
	}
	cutoff := s.now().UTC().Add(-retention)

	var buf bytes.Buffer
	for _, rec := range all {
		observed, err := parseObserved(rec.ObservedAtUTC)
		if err != nil {
			warnings = append(warnings, "snapshot_observed_at_invalid:"+path)
		} else if observed.Before(cutoff) {
			continue
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return warnings, fmt.Errorf("snapshot_append_failed:%s: %w", path, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return warnings, fmt.Errorf("snapshot_append_failed:%s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return warnings, fmt.Errorf("snapshot_append_failed:%s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return warnings, fmt.Errorf("snapshot_append_failed:%s: %w", path, err)
	}
	return warnings, nil
}

func parseObserved(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
