package maturity

import (
	"math"

	"github.com/fernwood/berrysight/internal/detection"
)

// Distribution summarizes the ripeness labels of one analysis.
//
// Counts always carry all four classes (zeros included) and sum to Total.
// Percentages are rounded to one decimal and are all zero when Total is
// zero, never a division by zero. The Score is the single 0-100
// harvest-readiness number the recommendation bands are keyed on.
type Distribution struct {
	Counts      map[detection.Maturity]int     `json:"counts"`
	Percentages map[detection.Maturity]float64 `json:"percentages"`
	Total       int                            `json:"total"`
	Score       float64                        `json:"score"`
}

// Aggregate counts detections into the four ripeness buckets and derives
// percentages and the weighted maturity score.
//
// Detections with an unset or unrecognized label count as unknown. The
// score weights ripe fruit 1.0, semi-ripe 0.5 and unripe 0.0; unknown
// detections also weigh 0.0 but stay in the denominator, so unclassifiable
// fruit pulls the score down exactly as unripe fruit does. Score =
// round(100 x (ripe + 0.5 x semi_ripe) / total, 1), defined as 0 for an
// empty detection list.
//
// Aggregate never fails; it is a pure function of the label multiset and
// ignores detection order entirely.
func Aggregate(detections []detection.Detection) Distribution {
	counts := map[detection.Maturity]int{
		detection.MaturityRipe:     0,
		detection.MaturitySemiRipe: 0,
		detection.MaturityUnripe:   0,
		detection.MaturityUnknown:  0,
	}
	for _, d := range detections {
		label := d.Maturity
		if !label.Recognized() {
			label = detection.MaturityUnknown
		}
		counts[label]++
	}

	total := len(detections)
	percentages := map[detection.Maturity]float64{
		detection.MaturityRipe:     0,
		detection.MaturitySemiRipe: 0,
		detection.MaturityUnripe:   0,
		detection.MaturityUnknown:  0,
	}
	score := 0.0
	if total > 0 {
		for label, count := range counts {
			percentages[label] = round1(float64(count) / float64(total) * 100)
		}
		weighted := float64(counts[detection.MaturityRipe]) + 0.5*float64(counts[detection.MaturitySemiRipe])
		score = round1(weighted / float64(total) * 100)
	}

	return Distribution{
		Counts:      counts,
		Percentages: percentages,
		Total:       total,
		Score:       score,
	}
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
