package feeds

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAsOfConflict is returned when both an as-of timestamp and date are set.
	ErrAsOfConflict = errors.New("as_of and as_of_date are mutually exclusive")
	// ErrAsOfInvalid is returned for an unparseable as-of setting.
	ErrAsOfInvalid = errors.New("invalid as-of cutoff")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing "Z" is accepted
// and timestamps without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ResolveCutoff returns the as-of cutoff, or ok=false when neither setting
// is present. A date is read as the last second of that UTC day.
func ResolveCutoff(asOf, asOfDate string) (cutoff time.Time, ok bool, err error) {
	asOf = strings.TrimSpace(asOf)
	asOfDate = strings.TrimSpace(asOfDate)
	switch {
	case asOf != "" && asOfDate != "":
		return time.Time{}, false, ErrAsOfConflict
	case asOf != "":
		t, parsed := ParseTimestamp(asOf)
		if !parsed {
			return time.Time{}, false, fmt.Errorf("%w: as_of %q", ErrAsOfInvalid, asOf)
		}
		return t, true, nil
	case asOfDate != "":
		d, perr := time.Parse("2006-01-02", asOfDate)
		if perr != nil {
			return time.Time{}, false, fmt.Errorf("%w: as_of_date %q", ErrAsOfInvalid, asOfDate)
		}
		return d.Add(24*time.Hour - time.Second), true, nil
	default:
		return time.Time{}, false, nil
	}
}

// Availability returns when a payload stamped at source became visible,
// given a per-feed publication lag.
func Availability(source time.Time, lagSeconds float64) time.Time {
	if lagSeconds <= 0 {
		return source
	}
	return source.Add(time.Duration(lagSeconds * float64(time.Second)))
}

// ApplyAsOf enforces the point-in-time guard in place. Envelopes whose
// timestamp is missing or whose availability falls after cutoff are
// degraded to empty data.
func ApplyAsOf(env *Envelope, feed string, cutoff time.Time, lagSeconds float64) {
	source, ok := ParseTimestamp(env.SourceTimestamp)
	if !ok {
		env.AddFlag(FlagAsOfTimestampMissing)
		env.AddWarning("%s_as_of_timestamp_missing", feed)
		env.Degrade()
		return
	}
	available := Availability(source, lagSeconds)
	if available.After(cutoff) {
		env.AddFlag(FlagAsOfViolation)
		env.AddWarning("%s_as_of_violation", feed)
		env.Degrade()
	}
}
