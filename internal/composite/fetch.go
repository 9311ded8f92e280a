package composite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/feeds"
	"fantasy-alpha-lab/internal/observability"
)

// Flags that mean the feed never produced data worth validating.
var unavailableFlags = []string{
	feeds.FlagFeedDisabled,
	feeds.FlagEndpointNotConfigured,
	feeds.FlagFetchFailed,
	feeds.FlagInvalidPayload,
	feeds.FlagAsOfSnapshotMissing,
}

// fetchAll fans out to every feed. Each feed degrades on its own; only
// strict contract errors and non-graceful fetch errors abort the batch.
func (p *Provider) fetchAll(ctx context.Context, league *domain.League, week int) (map[string]feeds.Envelope, []string, error) {
	results := make([]feeds.Envelope, len(feeds.AllFeeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(feeds.AllFeeds))
	for i, name := range feeds.AllFeeds {
		i, name := i, name
		g.Go(func() error {
			env, err := p.fetchFeed(gctx, name, league, week)
			if err != nil {
				var contractErr *ContractError
				if errors.As(err, &contractErr) || !p.cfg.Runtime.DegradeGracefully {
					return err
				}
				warning := fmt.Sprintf("%s_fetch_failed: %v", name, err)
				var feedErr *FeedError
				if errors.As(err, &feedErr) {
					warning = feedErr.Error()
				}
				env = feeds.Envelope{
					Data:         map[string]any{},
					QualityFlags: []string{feeds.FlagFetchFailed},
					Warnings:     []string{warning},
				}
				p.logger.Warn().Err(err).Str("feed", name).Msg("Feed degraded to empty payload")
			}
			results[i] = env
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	envs := make(map[string]feeds.Envelope, len(results))
	var warnings []string
	for i, name := range feeds.AllFeeds {
		envs[name] = results[i]
		warnings = append(warnings, results[i].Warnings...)
	}
	return envs, warnings, nil
}

func (p *Provider) fetchFeed(ctx context.Context, name string, league *domain.League, week int) (feeds.Envelope, error) {
	key := feedKey{feed: name, weekKey: weekKey{week: week}}
	if league != nil {
		key.leagueID, key.year = league.LeagueID, league.Year
	}
	ttl := p.ttl()

	p.mu.Lock()
	if entry, ok := p.feedCache[key]; ok && ttl > 0 && p.now().Sub(entry.at) <= ttl {
		env := entry.env.Clone()
		p.mu.Unlock()
		observability.RecordCacheHit("feed")
		return env, nil
	}
	p.mu.Unlock()

	start := time.Now()
	var env feeds.Envelope
	replayed := false
	if p.hasCutoff && p.snapshots != nil {
		env = p.replay(ctx, name, league, week)
		replayed = true
	} else {
		fetcher := p.fetchers[name]
		fetched, err := fetcher.Fetch(ctx, league, week)
		if err != nil {
			observability.RecordFeedFetch(name, "error", time.Since(start))
			return feeds.Envelope{}, &FeedError{Feed: name, Err: err}
		}
		env = fetched
	}
	observability.RecordFeedFetch(name, fetchStatus(env), time.Since(start))

	env, err := p.enforceContract(name, env)
	if err != nil {
		return feeds.Envelope{}, err
	}

	if p.hasCutoff {
		feeds.ApplyAsOf(&env, name, p.cutoff, p.cfg.Runtime.LagSeconds(name))
		if env.HasFlag(feeds.FlagAsOfViolation) || env.HasFlag(feeds.FlagAsOfTimestampMissing) {
			observability.RecordAsOfViolation(name)
		}
	}

	if !replayed && p.snapshots != nil && env.HasFlag(feeds.FlagLiveFetch) && !env.HasFlag(feeds.FlagContractDegraded) {
		p.record(ctx, name, league, week, &env)
	}

	p.logger.Debug().
		Str("feed", name).
		Int("week", week).
		Strs("flags", env.QualityFlags).
		Dur("elapsed", time.Since(start)).
		Msg("Feed resolved")

	p.mu.Lock()
	p.feedCache[key] = cachedFeed{env: env.Clone(), at: p.now()}
	p.mu.Unlock()
	return env, nil
}

// normalizeEnvelope fills blank fields and flags a missing timestamp.
func normalizeEnvelope(name string, env feeds.Envelope) feeds.Envelope {
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	if env.QualityFlags == nil {
		env.QualityFlags = []string{}
	}
	if env.Warnings == nil {
		env.Warnings = []string{}
	}
	if env.SourceTimestamp == "" {
		env.QualityFlags = append(env.QualityFlags, feeds.FlagMissingSourceTimestamp)
		env.Warnings = append(env.Warnings, name+"_missing_source_timestamp")
	}
	return env
}

// enforceContract validates env against its canonical contract. In warn
// mode violations empty the data; strict mode also returns a ContractError.
func (p *Provider) enforceContract(name string, env feeds.Envelope) (feeds.Envelope, error) {
	env = normalizeEnvelope(name, env)
	mode := p.cfg.Runtime.CanonicalContractMode
	if mode == feeds.ContractOff {
		return env, nil
	}
	for _, flag := range unavailableFlags {
		if env.HasFlag(flag) {
			return env, nil
		}
	}
	if !p.cfg.Runtime.ContractDomains()[name] {
		return env, nil
	}

	violations := feeds.ValidateCanonical(name, env.ToMap())
	if len(violations) == 0 {
		return env, nil
	}

	for _, v := range violations {
		env.AddWarning("%s_contract_error:%s", name, v)
	}
	env.AddFlag(feeds.FlagContractInvalid)
	env.Degrade()
	env.AddFlag(feeds.FlagContractDegraded)
	observability.RecordContractViolation(name)

	if mode == feeds.ContractStrict {
		return env, &ContractError{Feed: name, Violations: violations}
	}
	p.logger.Warn().Str("feed", name).Int("violations", len(violations)).Msg("Feed failed contract, degraded to empty")
	return env, nil
}

func fetchStatus(env feeds.Envelope) string {
	for _, flag := range []string{
		feeds.FlagFetchFailed,
		feeds.FlagEndpointNotConfigured,
		feeds.FlagFeedDisabled,
		feeds.FlagSnapshotReplay,
		feeds.FlagAsOfSnapshotMissing,
		feeds.FlagStaticPayload,
		feeds.FlagLiveFetch,
	} {
		if env.HasFlag(flag) {
			return flag
		}
	}
	return "unknown"
}
