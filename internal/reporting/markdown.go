package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderOddsMarkdown renders a simulation odds report as Markdown string.
func RenderOddsMarkdown(r *OddsReport) string {
	var sb strings.Builder

	mode := "baseline"
	if r.AlphaMode {
		mode = "alpha"
	}

	sb.WriteString("# Season Odds\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("League: %d | Year: %d | Mode: %s | Ratings: %s | Simulations: %d\n\n",
		r.LeagueID, r.Year, mode, r.RatingsSource, r.NumSimulations))

	if len(r.Rows) == 0 {
		sb.WriteString("No teams simulated.\n")
		return sb.String()
	}

	sb.WriteString("| Team | Avg Wins | Playoff % | Championship % |\n")
	sb.WriteString("|------|----------|-----------|----------------|\n")
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.1f | %.1f |\n",
			teamLabel(row), row.AvgWins, row.PlayoffOdds, row.ChampionshipOdds))
	}

	return sb.String()
}

// RenderHistoryMarkdown renders stored A/B runs as Markdown string.
func RenderHistoryMarkdown(r *HistoryReport) string {
	var sb strings.Builder

	sb.WriteString("# A/B Run History\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("League: %d | Team: %d | Runs: %d\n\n", r.LeagueID, r.TeamID, len(r.Runs)))

	if len(r.Runs) == 0 {
		sb.WriteString("No stored runs.\n")
		return sb.String()
	}

	sb.WriteString("| Run | Created | Profile | Status | Seeds OK | Mean Lift | Git |\n")
	sb.WriteString("|-----|---------|---------|--------|----------|-----------|-----|\n")
	for _, run := range r.Runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d/%d | %.4f | %s |\n",
			run.RunID,
			run.CreatedAt.UTC().Format(time.RFC3339),
			run.Profile,
			run.DecisionStatus,
			run.SuccessfulSeeds,
			run.Seeds,
			run.MeanWeeklyLift,
			run.GitSHA,
		))
	}

	return sb.String()
}

func teamLabel(row OddsRow) string {
	if row.TeamName != "" {
		return row.TeamName
	}
	return fmt.Sprintf("team_%d", row.TeamID)
}
