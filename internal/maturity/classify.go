package maturity

import (
	"image"

	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/imaging"
)

// Classification thresholds, on the 0-179 hue and 0-255 saturation/value
// scales. Empirically tuned against field imagery.
const (
	hueUnripeFloor = 120.0 // mean hue at or above this reads as unripe
	satColorFloor  = 100.0 // saturation needed to trust the hue reading
	valSemiFloor   = 150.0 // brightness above this within the ripe band = not fully dark yet
	varianceScale  = 1000.0
)

// Classify attaches a ripeness label and confidence to one detection,
// returning a completed copy. The input detection is never modified.
//
// The region is cropped to the detection's (already clamped) bounding box
// and its HSV statistics drive two independent results:
//
//   - Label: a recognized ripeness label supplied by the model wins
//     unconditionally. Otherwise mean hue below 120 with saturation above
//     100 puts the berry in the ripening band, where brightness decides
//     between semi_ripe (value > 150) and ripe (darker = riper); mean hue
//     of 120 or more is unripe; anything else is unknown. The value test
//     runs inside the hue band check; at boundary hues the order of these
//     comparisons changes the outcome, so it must stay exactly as written.
//   - Confidence: clamp(1 - hue_variance/1000, 0, 1). A uniformly colored
//     region is a confident read; a noisy mixed region is not.
//
// A degenerate crop (zero pixels) marks the detection unknown with zero
// confidence, trumping even a model label: there is nothing to verify
// against. This is a per-detection outcome, never an error; one bad crop
// must not abort its siblings.
func Classify(img image.Image, det detection.Detection) detection.Detection {
	out := det

	b := det.Bounds
	crop := imaging.CropRegion(img, b.X1, b.Y1, b.X2, b.Y2)
	stats, err := imaging.AnalyzeHSV(crop)
	if err != nil {
		out.Maturity = detection.MaturityUnknown
		out.MaturityConfidence = 0
		return out
	}

	if det.Maturity.Recognized() {
		out.Maturity = det.Maturity
	} else {
		out.Maturity = classifyStats(stats)
	}
	out.MaturityConfidence = confidenceFromVariance(stats.HueVariance)
	return out
}

// ClassifyAll classifies every detection against the same source image,
// returning a new fully-populated slice. The input slice is not modified.
func ClassifyAll(img image.Image, detections []detection.Detection) []detection.Detection {
	out := make([]detection.Detection, len(detections))
	for i, det := range detections {
		out[i] = Classify(img, det)
	}
	return out
}

// classifyStats maps region color statistics to a ripeness class.
func classifyStats(s *imaging.HSVStats) detection.Maturity {
	switch {
	case s.MeanHue < hueUnripeFloor && s.MeanSaturation > satColorFloor:
		if s.MeanValue > valSemiFloor {
			return detection.MaturitySemiRipe
		}
		return detection.MaturityRipe
	case s.MeanHue >= hueUnripeFloor:
		return detection.MaturityUnripe
	default:
		return detection.MaturityUnknown
	}
}

// confidenceFromVariance converts hue variance to a [0,1] confidence.
// Variance 0 (perfectly uniform color) scores 1.0; variance at or beyond
// varianceScale scores 0.
func confidenceFromVariance(variance float64) float64 {
	c := 1.0 - variance/varianceScale
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
