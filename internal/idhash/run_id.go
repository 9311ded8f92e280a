// Package idhash derives run identifiers and configuration fingerprints.
package idhash

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunIDPrefix marks A/B evaluation run ids.
const RunIDPrefix = "ab_"

const runIDTimeLayout = "20060102T150405Z"

// NewRunID returns ab_<UTC timestamp>_<8 hex chars>.
// Two calls within the same second still differ in the random suffix.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return RunIDPrefix + now.UTC().Format(runIDTimeLayout) + "_" + suffix
}

// ParseRunTime extracts the timestamp embedded in a run id.
func ParseRunTime(runID string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(runID, RunIDPrefix)
	if !ok || len(rest) < len(runIDTimeLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(runIDTimeLayout, rest[:len(runIDTimeLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
