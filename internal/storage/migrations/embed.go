// Package migrations applies the embedded schemas for A/B runs, feed
// snapshots and per-seed metrics.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// PostgresFS holds the ab_runs and feed_snapshots schemas.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the ab_seed_metrics table and its lift views.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// Migration is one numbered schema file, named NNN_description.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// List reads the migrations under dir in version order. Versions must
// start at 1 and increase by one; blank files are skipped.
func List(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: missing version prefix", entry.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version %q", entry.Name(), prefix)
		}
		data, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: entry.Name(), SQL: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i, m := range out {
		if m.Version != i+1 {
			return nil, fmt.Errorf("migration %s: expected version %03d", m.Name, i+1)
		}
	}

	kept := out[:0]
	for _, m := range out {
		if strings.TrimSpace(m.SQL) != "" {
			kept = append(kept, m)
		}
	}
	return kept, nil
}
