package composite

import (
	"context"
	"strings"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/feeds"
)

func snapshotKey(name string, league *domain.League, week int) domain.FeedSnapshotKey {
	key := domain.FeedSnapshotKey{Week: week, FeedName: name}
	if league != nil {
		key.LeagueID, key.Year = league.LeagueID, league.Year
	}
	return key.Normalized()
}

// replay returns the newest snapshot observed at or before the cutoff.
// Later records win ties.
func (p *Provider) replay(ctx context.Context, name string, league *domain.League, week int) feeds.Envelope {
	env := feeds.NewEnvelope(p.now())
	env.SourceTimestamp = ""

	records, warnings, err := p.snapshots.Load(ctx, snapshotKey(name, league, week))
	for _, w := range warnings {
		env.AddWarning("%s", w)
	}
	if err != nil {
		env.AddWarning("%s_snapshot_load_failed: %v", name, err)
	}

	var best *domain.FeedSnapshot
	for _, rec := range records {
		observed, ok := feeds.ParseTimestamp(rec.ObservedAtUTC)
		if !ok || observed.After(p.cutoff) {
			continue
		}
		if best == nil {
			best = rec
			continue
		}
		bestObserved, _ := feeds.ParseTimestamp(best.ObservedAtUTC)
		if !observed.Before(bestObserved) {
			best = rec
		}
	}

	if best == nil {
		env.AddFlag(feeds.FlagAsOfSnapshotMissing)
		env.AddWarning("%s_as_of_snapshot_missing", name)
		return env
	}

	replayed := feeds.FromMap(best.Payload)
	for _, w := range env.Warnings {
		replayed.AddWarning("%s", w)
	}
	replayed.AddFlag(feeds.FlagSnapshotReplay)
	return replayed
}

// record appends a live observation to the snapshot log. Failures become
// envelope warnings.
func (p *Provider) record(ctx context.Context, name string, league *domain.League, week int, env *feeds.Envelope) {
	observed := p.now().UTC()
	availability := ""
	if source, ok := feeds.ParseTimestamp(env.SourceTimestamp); ok {
		availability = feeds.FormatTimestamp(feeds.Availability(source, p.cfg.Runtime.LagSeconds(name)))
	}

	key := snapshotKey(name, league, week)
	snap := &domain.FeedSnapshot{
		SchemaVersion:         domain.FeedSnapshotSchemaVersion,
		ObservedAtUTC:         observed.Format("2006-01-02T15:04:05Z07:00"),
		LeagueID:              key.LeagueID,
		Year:                  key.Year,
		Week:                  key.Week,
		FeedName:              strings.ToLower(name),
		SourceTimestamp:       env.SourceTimestamp,
		AvailabilityTimestamp: availability,
		Payload:               env.ToMap(),
	}

	warnings, err := p.snapshots.Append(ctx, snap)
	for _, w := range warnings {
		env.AddWarning("%s", w)
	}
	if err != nil {
		env.AddWarning("%s_snapshot_append_failed: %v", name, err)
		p.logger.Warn().Err(err).Str("feed", name).Msg("Snapshot append failed")
	}
}
