package idhash

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// UnknownRevision is reported when git is unavailable.
const UnknownRevision = "unknown"

const gitTimeout = 2 * time.Second

// GitRevision returns the short HEAD revision of the repository at dir,
// or UnknownRevision when git is missing or dir is not a work tree.
func GitRevision(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return UnknownRevision
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return UnknownRevision
	}
	return rev
}
