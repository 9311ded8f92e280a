package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/observability"
	"fantasy-alpha-lab/internal/storage"
)

// SeedMetricStore implements storage.SeedMetricStore using ClickHouse.
// Rows feed cross-run analytics over per-seed lifts.
type SeedMetricStore struct {
	conn *Conn
}

// NewSeedMetricStore creates a new SeedMetricStore.
func NewSeedMetricStore(conn *Conn) *SeedMetricStore {
	return &SeedMetricStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeedMetricStore = (*SeedMetricStore)(nil)

// InsertBulk adds all seed rows of a run. Fails entire batch on any duplicate.
func (s *SeedMetricStore) InsertBulk(ctx context.Context, rows []*domain.SeedResult) (err error) {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_seed_metrics", time.Since(start).Seconds(), err)
	}()

	// MergeTree does not enforce uniqueness; check explicitly.
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%d", r.RunID, r.Seed)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}
	for _, r := range rows {
		exists, err := s.exists(ctx, r.RunID, r.Seed)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ab_seed_metrics (
			run_id, seed,
			weekly_points_lift, playoff_odds_lift, championship_odds_lift, calibration_brier,
			status, error
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.RunID, int64(r.Seed),
			r.WeeklyPointsLift, r.PlayoffOddsLift, r.ChampionshipOddsLift, r.CalibrationBrier,
			r.Status, r.Error,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves the seed rows of a run, ordered by seed ASC.
func (s *SeedMetricStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SeedResult, error) {
	query := `
		SELECT
			run_id, seed,
			weekly_points_lift, playoff_odds_lift, championship_odds_lift, calibration_brier,
			status, error
		FROM ab_seed_metrics
		WHERE run_id = ?
		ORDER BY seed ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query seed metrics: %w", err)
	}
	defer rows.Close()

	var result []*domain.SeedResult
	for rows.Next() {
		var (
			r    domain.SeedResult
			seed int64
		)
		err := rows.Scan(
			&r.RunID, &seed,
			&r.WeeklyPointsLift, &r.PlayoffOddsLift, &r.ChampionshipOddsLift, &r.CalibrationBrier,
			&r.Status, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan seed metric row: %w", err)
		}
		r.Seed = int(seed)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seed metric rows: %w", err)
	}
	return result, nil
}

func (s *SeedMetricStore) exists(ctx context.Context, runID string, seed int) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM ab_seed_metrics WHERE run_id = ? AND seed = ?`,
		runID, int64(seed),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
