package evaluation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fantasy-alpha-lab/internal/decision"
	"fantasy-alpha-lab/internal/idhash"
	"fantasy-alpha-lab/internal/metrics"
	"fantasy-alpha-lab/internal/reporting"
)

// ErrOutputExists is returned when the run directory already exists.
var ErrOutputExists = errors.New("A/B output directory already exists")

// Artifact file names inside a run directory.
const (
	FileManifest       = "run_manifest.json"
	FileMetricsSummary = "metrics_summary.json"
	FileMetricsPerSeed = "metrics_per_seed.csv"
	FileWarnings       = "warnings.json"
	FileDecisionReport = "decision_report.md"
)

// ArtifactFiles lists every file a run writes.
var ArtifactFiles = []string{
	FileManifest,
	FileMetricsSummary,
	FileMetricsPerSeed,
	FileWarnings,
	FileDecisionReport,
}

type summaryDocument struct {
	Summary  metrics.RunSummary `json:"summary"`
	Decision *decision.Result   `json:"decision"`
}

type warningsDocument struct {
	Warnings []string `json:"warnings"`
}

// writeArtifacts creates the run directory and writes every artifact.
// An existing run directory is never reused.
func writeArtifacts(r *Result) error {
	if err := os.MkdirAll(filepath.Dir(r.OutputDir), 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	if err := os.Mkdir(r.OutputDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, r.OutputDir)
		}
		return fmt.Errorf("create run directory: %w", err)
	}

	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	if err := writeJSON(filepath.Join(r.OutputDir, FileManifest), r.Manifest); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(r.OutputDir, FileMetricsSummary), summaryDocument{Summary: r.Summary, Decision: r.Decision}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(r.OutputDir, FileWarnings), warningsDocument{Warnings: warnings}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(r.OutputDir, FileMetricsPerSeed), reporting.RenderSeedCSV(r.Seeds)); err != nil {
		return err
	}
	report := decision.RenderMarkdown(r.Decision, r.Summary.WeeklyPointsLift, warnings)
	return writeFile(filepath.Join(r.OutputDir, FileDecisionReport), report)
}

// writeJSON writes v indented with sorted keys.
func writeJSON(path string, v any) error {
	canonical, err := idhash.CanonicalJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", "  "); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	buf.WriteByte('\n')
	return writeFile(path, buf.String())
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
