package metrics

import (
	"sort"

	"fantasy-alpha-lab/internal/domain"
)

// Metric names reported in run summaries.
const (
	MetricWeeklyPointsLift     = "weekly_points_lift"
	MetricPlayoffOddsLift      = "playoff_odds_lift"
	MetricChampionshipOddsLift = "championship_odds_lift"
	MetricCalibrationBrier     = "calibration_brier"
)

// MetricSummary describes the distribution of one metric across seeds.
type MetricSummary struct {
	Metric              string  `json:"metric"`
	N                   int     `json:"n"`
	Mean                float64 `json:"mean"`
	Median              float64 `json:"median"`
	Std                 float64 `json:"std"`
	P05                 float64 `json:"p05"`
	P95                 float64 `json:"p95"`
	DownsideProbability float64 `json:"downside_probability"`
}

// Summarize computes the distribution summary of values.
// Empty input yields zeros with downside probability 1.
func Summarize(name string, values []float64, downsideThreshold float64) MetricSummary {
	if len(values) == 0 {
		return MetricSummary{Metric: name, DownsideProbability: 1.0}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return MetricSummary{
		Metric:              name,
		N:                   len(values),
		Mean:                computeMean(values),
		Median:              computePercentile(sorted, 0.50),
		Std:                 computeStddev(values),
		P05:                 computePercentile(sorted, 0.05),
		P95:                 computePercentile(sorted, 0.95),
		DownsideProbability: computeBelowFraction(values, downsideThreshold),
	}
}

// RunSummary aggregates every successful seed of an evaluation.
type RunSummary struct {
	WeeklyPointsLift     MetricSummary `json:"weekly_points_lift"`
	PlayoffOddsLift      MetricSummary `json:"playoff_odds_lift"`
	ChampionshipOddsLift MetricSummary `json:"championship_odds_lift"`
	CalibrationBrier     MetricSummary `json:"calibration_brier"`
	SeedSuccessRate      float64       `json:"seed_success_rate"`
	SuccessfulSeeds      int           `json:"successful_seeds"`
}

// Aggregate summarizes seed results; failed seeds count only toward the success rate.
func Aggregate(results []domain.SeedResult) RunSummary {
	var weekly, playoff, champ, brier []float64
	ok := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		ok++
		weekly = append(weekly, r.WeeklyPointsLift)
		playoff = append(playoff, r.PlayoffOddsLift)
		champ = append(champ, r.ChampionshipOddsLift)
		brier = append(brier, r.CalibrationBrier)
	}

	return RunSummary{
		WeeklyPointsLift:     Summarize(MetricWeeklyPointsLift, weekly, 0),
		PlayoffOddsLift:      Summarize(MetricPlayoffOddsLift, playoff, 0),
		ChampionshipOddsLift: Summarize(MetricChampionshipOddsLift, champ, 0),
		CalibrationBrier:     Summarize(MetricCalibrationBrier, brier, 0),
		SeedSuccessRate:      float64(ok) / float64(max(1, len(results))),
		SuccessfulSeeds:      ok,
	}
}
