package metrics

import (
	"math"
	"testing"

	"fantasy-alpha-lab/internal/domain"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{5, 1.2},
		{50, 3},
		{95, 4.8},
		{100, 5},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.q); !approx(got, tt.want) {
			t.Errorf("Percentile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("empty percentile = %v", got)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("x", nil, 0)
	if s.N != 0 || s.Mean != 0 || s.DownsideProbability != 1.0 {
		t.Errorf("unexpected empty summary %+v", s)
	}
}

func TestSummarize_Values(t *testing.T) {
	s := Summarize("x", []float64{-1, 1, 2, 4}, 0)
	if s.N != 4 {
		t.Errorf("N = %d", s.N)
	}
	if !approx(s.Mean, 1.5) {
		t.Errorf("mean = %v", s.Mean)
	}
	if !approx(s.Median, 1.5) {
		t.Errorf("median = %v", s.Median)
	}
	if !approx(s.DownsideProbability, 0.25) {
		t.Errorf("downside = %v", s.DownsideProbability)
	}
	// sample variance: (6.25 + 0.25 + 0.25 + 6.25) / 3 = 13/3
	if !approx(s.Std, math.Sqrt(13.0/3.0)) {
		t.Errorf("std = %v", s.Std)
	}
}

func TestSummarize_SingleValueHasZeroStd(t *testing.T) {
	s := Summarize("x", []float64{3}, 0)
	if s.Std != 0 || s.P05 != 3 || s.P95 != 3 || s.DownsideProbability != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestAggregate_ExcludesFailedSeeds(t *testing.T) {
	results := []domain.SeedResult{
		{Seed: 1, WeeklyPointsLift: 1, Status: domain.SeedStatusOK},
		{Seed: 2, WeeklyPointsLift: 3, Status: domain.SeedStatusOK},
		{Seed: 3, WeeklyPointsLift: 100, Status: domain.SeedStatusError, Error: "boom"},
		{Seed: 4, WeeklyPointsLift: 2, Status: domain.SeedStatusOK},
	}
	s := Aggregate(results)
	if s.SuccessfulSeeds != 3 {
		t.Errorf("successful seeds = %d", s.SuccessfulSeeds)
	}
	if !approx(s.SeedSuccessRate, 0.75) {
		t.Errorf("success rate = %v", s.SeedSuccessRate)
	}
	if !approx(s.WeeklyPointsLift.Mean, 2) {
		t.Errorf("weekly mean = %v", s.WeeklyPointsLift.Mean)
	}
}

func TestAggregate_NoSeeds(t *testing.T) {
	s := Aggregate(nil)
	if s.SeedSuccessRate != 0 || s.WeeklyPointsLift.DownsideProbability != 1 {
		t.Errorf("unexpected %+v", s)
	}
}
