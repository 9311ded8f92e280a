package decision

import (
	"fmt"
	"strings"

	"fantasy-alpha-lab/internal/metrics"
)

// RenderMarkdown renders the human-readable decision report.
func RenderMarkdown(result *Result, primary metrics.MetricSummary, warnings []string) string {
	var sb strings.Builder

	status := StatusInconclusive
	if result != nil && result.Status != "" {
		status = result.Status
	}

	sb.WriteString("# Alpha A/B Decision Report\n\n")
	sb.WriteString(fmt.Sprintf("- Status: **%s**\n", status))
	sb.WriteString(fmt.Sprintf("- Mean weekly points lift: `%.4f`\n", primary.Mean))
	sb.WriteString(fmt.Sprintf("- 90%% empirical interval (p05, p95): `(%.4f, %.4f)`\n", primary.P05, primary.P95))
	sb.WriteString(fmt.Sprintf("- Downside probability P(lift < 0): `%.4f`\n", primary.DownsideProbability))
	sb.WriteString("\n## Rationale\n")

	if result != nil {
		for _, reason := range result.Reasons {
			sb.WriteString(fmt.Sprintf("- %s\n", reason))
		}

		if len(result.Criteria) > 0 {
			sb.WriteString("\n## Gate Criteria\n\n")
			sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
			sb.WriteString("|---|-----------|-----------|--------|------|\n")
			for i, c := range result.Criteria {
				passStr := "PASS"
				if !c.Pass {
					passStr = "FAIL"
				}
				sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
					i+1, c.Name, c.Threshold, c.Actual, passStr))
			}
		}
	}

	if len(warnings) > 0 {
		sb.WriteString("\n## Warnings\n")
		for _, w := range warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
	}

	return sb.String()
}
