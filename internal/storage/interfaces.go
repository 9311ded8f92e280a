package storage

import (
	"context"

	"fantasy-alpha-lab/internal/domain"
)

// ABRunStore provides access to ab_runs storage.
type ABRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ABRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ABRun, error)

	// ListByLeague retrieves runs for a league and team, newest first.
	ListByLeague(ctx context.Context, leagueID, teamID int) ([]*domain.ABRun, error)
}

// SeedMetricStore provides access to ab_seed_metrics storage.
type SeedMetricStore interface {
	// InsertBulk adds all seed rows of a run. Fails entire batch on duplicate (run_id, seed).
	InsertBulk(ctx context.Context, rows []*domain.SeedResult) error

	// GetByRunID retrieves the seed rows of a run, ordered by seed ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SeedResult, error)
}

// FeedSnapshotStore provides access to the append-only feed observation log.
// Read and prune problems that do not invalidate the whole log are reported
// as warnings rather than errors.
type FeedSnapshotStore interface {
	// Append records one observation and prunes records older than the
	// store's retention window.
	Append(ctx context.Context, snap *domain.FeedSnapshot) (warnings []string, err error)

	// Load retrieves the observations for a key in append order.
	// A key with no log returns an empty slice.
	Load(ctx context.Context, key domain.FeedSnapshotKey) ([]*domain.FeedSnapshot, []string, error)
}
