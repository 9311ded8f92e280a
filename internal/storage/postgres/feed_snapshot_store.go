package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/storage"
)

// FeedSnapshotStore implements storage.FeedSnapshotStore using PostgreSQL.
// Records whose observed_at_utc does not parse are stored with a NULL
// observed_at and survive retention pruning.
type FeedSnapshotStore struct {
	pool      *Pool
	retention time.Duration
	now       func() time.Time
}

// NewFeedSnapshotStore creates a new FeedSnapshotStore.
func NewFeedSnapshotStore(pool *Pool, retention time.Duration) *FeedSnapshotStore {
	if retention < 0 {
		retention = 0
	}
	return &FeedSnapshotStore{pool: pool, retention: retention, now: time.Now}
}

// Compile-time interface check.
var _ storage.FeedSnapshotStore = (*FeedSnapshotStore)(nil)

// Append inserts the observation and prunes the key's expired records in one transaction.
func (s *FeedSnapshotStore) Append(ctx context.Context, snap *domain.FeedSnapshot) ([]string, error) {
	if snap == nil {
		return nil, storage.ErrInvalidInput
	}
	key := snap.Key()

	var warnings []string
	var observedAt *time.Time
	if t, err := time.Parse(time.RFC3339Nano, snap.ObservedAtUTC); err == nil {
		utc := t.UTC()
		observedAt = &utc
	} else {
		warnings = append(warnings, fmt.Sprintf("snapshot_observed_at_invalid:%d/%d/week_%d/%s", key.LeagueID, key.Year, key.Week, key.FeedName))
	}

	payload, err := json.Marshal(snap.Payload)
	if err != nil {
		return warnings, fmt.Errorf("marshal snapshot payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return warnings, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO feed_snapshots (
			schema_version, observed_at_utc, observed_at,
			league_id, year, week, feed_name,
			source_timestamp, availability_timestamp, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		snap.SchemaVersion, snap.ObservedAtUTC, observedAt,
		key.LeagueID, key.Year, key.Week, key.FeedName,
		snap.SourceTimestamp, snap.AvailabilityTimestamp, string(payload),
	)
	if err != nil {
		return warnings, fmt.Errorf("insert feed snapshot: %w", err)
	}

	cutoff := s.now().UTC().Add(-s.retention)
	_, err = tx.Exec(ctx, `
		DELETE FROM feed_snapshots
		WHERE league_id = $1 AND year = $2 AND week = $3 AND feed_name = $4
		  AND observed_at IS NOT NULL AND observed_at < $5
	`, key.LeagueID, key.Year, key.Week, key.FeedName, cutoff)
	if err != nil {
		return warnings, fmt.Errorf("prune feed snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return warnings, fmt.Errorf("commit tx: %w", err)
	}
	return warnings, nil
}

// Load retrieves the observations for a key in append order.
func (s *FeedSnapshotStore) Load(ctx context.Context, key domain.FeedSnapshotKey) ([]*domain.FeedSnapshot, []string, error) {
	key = key.Normalized()

	rows, err := s.pool.Query(ctx, `
		SELECT
			schema_version, observed_at_utc,
			league_id, year, week, feed_name,
			source_timestamp, availability_timestamp, payload
		FROM feed_snapshots
		WHERE league_id = $1 AND year = $2 AND week = $3 AND feed_name = $4
		ORDER BY id ASC
	`, key.LeagueID, key.Year, key.Week, key.FeedName)
	if err != nil {
		return nil, nil, fmt.Errorf("query feed snapshots: %w", err)
	}
	defer rows.Close()

	records := []*domain.FeedSnapshot{}
	var warnings []string
	for rows.Next() {
		var (
			rec     domain.FeedSnapshot
			payload []byte
		)
		err := rows.Scan(
			&rec.SchemaVersion, &rec.ObservedAtUTC,
			&rec.LeagueID, &rec.Year, &rec.Week, &rec.FeedName,
			&rec.SourceTimestamp, &rec.AvailabilityTimestamp, &payload,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan feed snapshot row: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			warnings = append(warnings, fmt.Sprintf("snapshot_invalid_record_type:%s:%s", key.FeedName, rec.ObservedAtUTC))
			continue
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate feed snapshot rows: %w", err)
	}
	return records, warnings, nil
}
