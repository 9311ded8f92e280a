package reporting

import (
	"fmt"
	"strings"

	"fantasy-alpha-lab/internal/domain"
)

// SeedCSVHeader is the column order of metrics_per_seed.csv.
const SeedCSVHeader = "seed,weekly_points_lift,playoff_odds_lift,championship_odds_lift,calibration_brier,status,error"

// RenderSeedCSV renders per-seed A/B metrics as CSV string.
func RenderSeedCSV(rows []domain.SeedResult) string {
	var sb strings.Builder

	sb.WriteString(SeedCSVHeader)
	sb.WriteString("\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f,%.6f,%.6f,%s,%s\n",
			r.Seed,
			r.WeeklyPointsLift,
			r.PlayoffOddsLift,
			r.ChampionshipOddsLift,
			r.CalibrationBrier,
			csvField(r.Status),
			csvField(r.Error),
		))
	}

	return sb.String()
}

// RenderOddsCSV renders simulation odds rows as CSV string.
func RenderOddsCSV(rows []OddsRow) string {
	var sb strings.Builder

	sb.WriteString("team_id,team_name,avg_wins,playoff_odds,championship_odds\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%.4f,%.4f,%.4f\n",
			r.TeamID, csvField(r.TeamName), r.AvgWins, r.PlayoffOdds, r.ChampionshipOdds))
	}

	return sb.String()
}

// csvField quotes values containing separators, quotes or line breaks.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
