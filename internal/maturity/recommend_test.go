package maturity

import (
	"testing"

	"github.com/fernwood/berrysight/internal/detection"
)

// distWithScore builds a minimal Distribution for band selection tests.
func distWithScore(score, ripePct float64) Distribution {
	return Distribution{
		Counts: map[detection.Maturity]int{detection.MaturityRipe: 1},
		Percentages: map[detection.Maturity]float64{
			detection.MaturityRipe: ripePct,
		},
		Total: 1,
		Score: score,
	}
}

func TestRecommend_ScoreBands(t *testing.T) {
	tests := []struct {
		score       float64
		wantHarvest string
	}{
		{100, "Immediate harvest recommended"},
		{80, "Immediate harvest recommended"}, // lower bound inclusive
		{79.9, "Harvest soon"},
		{60, "Harvest soon"},
		{59.9, "Partial harvest possible"},
		{40, "Partial harvest possible"},
		{39.9, "Wait before harvesting"},
		{20, "Wait before harvesting"},
		{19.9, "Do not harvest"},
		{0, "Do not harvest"},
	}

	for _, tt := range tests {
		rec := Recommend(distWithScore(tt.score, 0))
		if rec.Harvest != tt.wantHarvest {
			t.Errorf("score %.1f: got %q, want %q", tt.score, rec.Harvest, tt.wantHarvest)
		}
	}
}

func TestRecommend_QualityLadder(t *testing.T) {
	tests := []struct {
		ripePct float64
		want    string
	}{
		{100, "Excellent"},
		{70, "Excellent"},
		{69.9, "Good"},
		{50, "Good"},
		{49.9, "Fair"},
		{30, "Fair"},
		{29.9, "Poor"},
		{0, "Poor"},
	}

	for _, tt := range tests {
		rec := Recommend(distWithScore(50, tt.ripePct))
		if rec.Quality != tt.want {
			t.Errorf("ripe %.1f%%: got %q, want %q", tt.ripePct, rec.Quality, tt.want)
		}
	}
}

func TestRecommend_NoFruit(t *testing.T) {
	rec := Recommend(Aggregate(nil))

	if rec.Quality != "No fruit detected" {
		t.Errorf("quality: got %q, want 'No fruit detected'", rec.Quality)
	}
	if rec.Harvest != "Do not harvest" {
		t.Errorf("harvest: got %q, want 'Do not harvest'", rec.Harvest)
	}
	if len(rec.NextSteps) != 4 {
		t.Errorf("next steps: got %d entries, want 4", len(rec.NextSteps))
	}
}

func TestRecommend_AlwaysFourNextSteps(t *testing.T) {
	for _, score := range []float64{95, 70, 45, 25, 5} {
		rec := Recommend(distWithScore(score, 0))
		if len(rec.NextSteps) != 4 {
			t.Errorf("score %.0f: got %d next steps, want 4", score, len(rec.NextSteps))
		}
	}
}

func TestRecommend_MostlyRipeField(t *testing.T) {
	// The full chain: 8 ripe + 2 semi-ripe aggregates to 90.0 and an
	// immediate harvest call with excellent quality.
	d := Aggregate(withMaturity(map[detection.Maturity]int{
		detection.MaturityRipe:     8,
		detection.MaturitySemiRipe: 2,
	}))

	rec := Recommend(d)
	if rec.Harvest != "Immediate harvest recommended" {
		t.Errorf("harvest: got %q", rec.Harvest)
	}
	if rec.Timing != "Harvest within 1-2 days" {
		t.Errorf("timing: got %q", rec.Timing)
	}
	if rec.Quality != "Excellent" {
		t.Errorf("quality: got %q, want Excellent (80%% ripe)", rec.Quality)
	}
}

func TestRecommend_TimingMatchesBand(t *testing.T) {
	tests := []struct {
		score      float64
		wantTiming string
	}{
		{85, "Harvest within 1-2 days"},
		{65, "Harvest within 2-3 days"},
		{45, "Main harvest in 5-7 days"},
		{25, "Re-evaluate in 10-14 days"},
		{5, "Fruit is predominantly immature"},
	}

	for _, tt := range tests {
		rec := Recommend(distWithScore(tt.score, 0))
		if rec.Timing != tt.wantTiming {
			t.Errorf("score %.0f timing: got %q, want %q", tt.score, rec.Timing, tt.wantTiming)
		}
	}
}
