package maturity

import "github.com/fernwood/berrysight/internal/detection"

// Recommendation is the human-facing harvest decision derived from a
// Distribution. Harvest/Timing come from the score bands; Quality comes
// from a separate ladder over the ripe percentage alone. The two ladders
// can disagree (a field can score "harvest soon" while quality is only
// "fair") and both are reported verbatim.
type Recommendation struct {
	Harvest   string   `json:"harvest"`
	Timing    string   `json:"timing"`
	Quality   string   `json:"quality"`
	NextSteps []string `json:"next_steps"`
}

// harvestBand is one row of the score table: an inclusive lower bound and
// the fixed texts it selects.
type harvestBand struct {
	minScore  float64
	harvest   string
	timing    string
	nextSteps []string
}

// Score bands, evaluated from highest to lowest; the first band whose
// lower bound the score meets wins. The final band has bound 0 and
// catches everything else, including the empty-field score.
var harvestBands = []harvestBand{
	{
		minScore: 80,
		harvest:  "Immediate harvest recommended",
		timing:   "Harvest within 1-2 days",
		nextSteps: []string{
			"Schedule picking crews within 24-48 hours",
			"Prepare cold storage and transport ahead of picking",
			"Harvest fully ripe sections first",
			"Re-check remaining rows daily for over-ripening",
		},
	},
	{
		minScore: 60,
		harvest:  "Harvest soon",
		timing:   "Harvest within 2-3 days",
		nextSteps: []string{
			"Plan the main harvest for the next 2-3 days",
			"Confirm labor and container availability",
			"Pick the ripest clusters selectively today",
			"Re-analyze tomorrow to track ripening speed",
		},
	},
	{
		minScore: 40,
		harvest:  "Partial harvest possible",
		timing:   "Main harvest in 5-7 days",
		nextSteps: []string{
			"Selectively pick only fully ripe fruit",
			"Schedule the main harvest in 5-7 days",
			"Monitor weather for ripening conditions",
			"Re-analyze in 2-3 days",
		},
	},
	{
		minScore: 20,
		harvest:  "Wait before harvesting",
		timing:   "Re-evaluate in 10-14 days",
		nextSteps: []string{
			"Delay harvest; most fruit is still immature",
			"Re-evaluate the field in 10-14 days",
			"Check irrigation and nutrition to support ripening",
			"Mark early-ripening sections for selective picking",
		},
	},
	{
		minScore: 0,
		harvest:  "Do not harvest",
		timing:   "Fruit is predominantly immature",
		nextSteps: []string{
			"Do not harvest yet",
			"Re-evaluate in 2-3 weeks",
			"Review crop management if ripening is unusually slow",
			"Verify the analyzed images cover representative sections",
		},
	},
}

// Quality ladder thresholds over the ripe percentage.
const (
	qualityExcellentPct = 70.0
	qualityGoodPct      = 50.0
	qualityFairPct      = 30.0
)

// Recommend maps a Distribution to its harvest recommendation.
//
// This is a pure table lookup and never fails: zero detections produce the
// do-not-harvest band with the "No fruit detected" quality rather than any
// kind of division error.
func Recommend(d Distribution) Recommendation {
	band := harvestBands[len(harvestBands)-1]
	for _, b := range harvestBands {
		if d.Score >= b.minScore {
			band = b
			break
		}
	}

	return Recommendation{
		Harvest:   band.harvest,
		Timing:    band.timing,
		Quality:   qualityLabel(d),
		NextSteps: band.nextSteps,
	}
}

// qualityLabel grades the crop on the ripe percentage alone.
func qualityLabel(d Distribution) string {
	if d.Total == 0 {
		return "No fruit detected"
	}
	ripePct := d.Percentages[detection.MaturityRipe]
	switch {
	case ripePct >= qualityExcellentPct:
		return "Excellent"
	case ripePct >= qualityGoodPct:
		return "Good"
	case ripePct >= qualityFairPct:
		return "Fair"
	default:
		return "Poor"
	}
}
