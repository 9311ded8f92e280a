package domain

import "strings"

// FeedSnapshotSchemaVersion is the current snapshot record schema.
const FeedSnapshotSchemaVersion = "1.0"

// FeedSnapshotKey addresses one feed observation log.
type FeedSnapshotKey struct {
	LeagueID int
	Year     int
	Week     int
	FeedName string
}

// Normalized returns the key with a lower-cased feed name.
func (k FeedSnapshotKey) Normalized() FeedSnapshotKey {
	k.FeedName = strings.ToLower(strings.TrimSpace(k.FeedName))
	return k
}

// FeedSnapshot is one observed feed envelope.
// Append-only: records are pruned by retention, never updated.
type FeedSnapshot struct {
	SchemaVersion         string         `json:"schema_version"`
	ObservedAtUTC         string         `json:"observed_at_utc"`
	LeagueID              int            `json:"league_id"`
	Year                  int            `json:"year"`
	Week                  int            `json:"week"`
	FeedName              string         `json:"feed_name"`
	SourceTimestamp       string         `json:"source_timestamp"`
	AvailabilityTimestamp string         `json:"availability_timestamp"`
	Payload               map[string]any `json:"payload"`
}

// Key returns the log key the snapshot belongs to.
func (s *FeedSnapshot) Key() FeedSnapshotKey {
	return FeedSnapshotKey{LeagueID: s.LeagueID, Year: s.Year, Week: s.Week, FeedName: s.FeedName}.Normalized()
}
