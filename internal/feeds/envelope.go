// Package feeds fetches external alpha feeds and normalizes them into the
// canonical envelope {data, source_timestamp, quality_flags, warnings}.
package feeds

import (
	"fmt"
	"time"
)

// Canonical feed names.
const (
	FeedWeather      = "weather"
	FeedMarket       = "market"
	FeedOdds         = "odds"
	FeedInjuryNews   = "injury_news"
	FeedNextGenStats = "nextgenstats"
)

// AllFeeds lists the canonical feeds in fan-out order.
var AllFeeds = []string{FeedWeather, FeedMarket, FeedOdds, FeedInjuryNews, FeedNextGenStats}

// Quality flags.
const (
	FlagFeedDisabled            = "feed_disabled"
	FlagStaticPayload           = "static_payload"
	FlagEndpointNotConfigured   = "endpoint_not_configured"
	FlagLiveFetch               = "live_fetch"
	FlagFetchFailed             = "fetch_failed"
	FlagInvalidPayload          = "invalid_payload"
	FlagDataWrappedValue        = "data_wrapped_value"
	FlagRawPayloadWrapped       = "raw_payload_wrapped"
	FlagNonObjectPayloadWrapped = "non_object_payload_wrapped"
	FlagMissingSourceTimestamp  = "missing_source_timestamp"
	FlagContractInvalid         = "contract_invalid"
	FlagContractDegraded        = "contract_degraded_to_empty"
	FlagAsOfViolation           = "as_of_violation"
	FlagAsOfTimestampMissing    = "as_of_timestamp_missing"
	FlagSnapshotReplay          = "snapshot_replay"
	FlagAsOfSnapshotMissing     = "as_of_snapshot_missing"
)

// Envelope is the canonical feed payload.
type Envelope struct {
	Data            map[string]any `json:"data"`
	SourceTimestamp string         `json:"source_timestamp"`
	QualityFlags    []string       `json:"quality_flags"`
	Warnings        []string       `json:"warnings"`
}

// NewEnvelope returns an empty envelope stamped with now.
func NewEnvelope(now time.Time) Envelope {
	return Envelope{
		Data:            map[string]any{},
		SourceTimestamp: FormatTimestamp(now),
		QualityFlags:    []string{},
		Warnings:        []string{},
	}
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// HasFlag reports whether flag is present.
func (e *Envelope) HasFlag(flag string) bool {
	for _, f := range e.QualityFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends flag unless already present.
func (e *Envelope) AddFlag(flag string) {
	if !e.HasFlag(flag) {
		e.QualityFlags = append(e.QualityFlags, flag)
	}
}

// AddWarning appends a warning unless already present.
func (e *Envelope) AddWarning(format string, args ...any) {
	w := fmt.Sprintf(format, args...)
	for _, existing := range e.Warnings {
		if existing == w {
			return
		}
	}
	e.Warnings = append(e.Warnings, w)
}

// Degrade empties the data.
func (e *Envelope) Degrade() {
	e.Data = map[string]any{}
}

// Clone returns a deep copy.
func (e Envelope) Clone() Envelope {
	out := Envelope{
		SourceTimestamp: e.SourceTimestamp,
		QualityFlags:    append([]string{}, e.QualityFlags...),
		Warnings:        append([]string{}, e.Warnings...),
	}
	if m, ok := DeepCopy(e.Data).(map[string]any); ok {
		out.Data = m
	} else {
		out.Data = map[string]any{}
	}
	return out
}

// ToMap renders the envelope as a generic JSON object.
func (e Envelope) ToMap() map[string]any {
	flags := make([]any, len(e.QualityFlags))
	for i, f := range e.QualityFlags {
		flags[i] = f
	}
	warnings := make([]any, len(e.Warnings))
	for i, w := range e.Warnings {
		warnings[i] = w
	}
	return map[string]any{
		"data":             DeepCopy(e.Data),
		"source_timestamp": e.SourceTimestamp,
		"quality_flags":    flags,
		"warnings":         warnings,
	}
}

// IsEnvelope reports whether v is an object carrying all four envelope keys.
func IsEnvelope(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"data", "source_timestamp", "quality_flags", "warnings"} {
		if _, ok := m[key]; !ok {
			return false
		}
	}
	return true
}

// Coerce converts an arbitrary decoded payload into an envelope.
// Proper envelopes keep their data, timestamp, flags and warnings; other
// objects are wrapped whole, and non-objects are wrapped under "value".
func Coerce(value any, baseFlags, baseWarnings []string, now time.Time) Envelope {
	env := NewEnvelope(now)
	env.QualityFlags = append(env.QualityFlags, baseFlags...)
	env.Warnings = append(env.Warnings, baseWarnings...)

	value = NormalizeJSON(value)

	if IsEnvelope(value) {
		m := value.(map[string]any)
		switch data := m["data"].(type) {
		case map[string]any:
			env.Data = data
		case nil:
		default:
			env.Data = map[string]any{"value": data}
			env.QualityFlags = append(env.QualityFlags, FlagDataWrappedValue)
		}
		if ts, ok := m["source_timestamp"].(string); ok && trimmed(ts) != "" {
			env.SourceTimestamp = ts
		}
		env.QualityFlags = mergeStrings(env.QualityFlags, m["quality_flags"])
		env.Warnings = mergeStrings(env.Warnings, m["warnings"])
		return env
	}

	if m, ok := value.(map[string]any); ok {
		env.Data = m
		env.QualityFlags = append(env.QualityFlags, FlagRawPayloadWrapped)
		return env
	}

	env.Data = map[string]any{"value": value}
	env.QualityFlags = append(env.QualityFlags, FlagNonObjectPayloadWrapped)
	return env
}

// FromMap normalizes a loosely-typed envelope object. Missing or invalid
// fields become empty values; no flags are added.
func FromMap(m map[string]any) Envelope {
	env := Envelope{
		Data:         AsMap(m["data"]),
		QualityFlags: StringList(m["quality_flags"]),
		Warnings:     StringList(m["warnings"]),
	}
	if ts, ok := m["source_timestamp"].(string); ok {
		env.SourceTimestamp = ts
	}
	return env
}

func mergeStrings(base []string, extra any) []string {
	list, ok := extra.([]any)
	if !ok {
		return base
	}
	seen := make(map[string]struct{}, len(base))
	for _, b := range base {
		seen[b] = struct{}{}
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		base = append(base, s)
	}
	return base
}
