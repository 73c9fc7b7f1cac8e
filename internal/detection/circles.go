package detection

import (
	"image"
	"math"
	"sort"

	"github.com/fernwood/berrysight/internal/imaging"
)

// Circle search constants. The radius range scales with the image (berries
// occupy a predictable fraction of a field photo); the vote ratio and the
// distance between accepted centers are fixed sensitivity parameters.
const (
	circleMinDistance    = 20   // minimum px between accepted centers
	circleVoteStep       = 10   // degrees between accumulator votes
	circleVoteRatio      = 0.6  // accepted when votes >= ratio x 2r
	circlePeakWindow     = 5    // px half-window for the local-maximum test
	circleMinRadiusFloor = 5    // px
	circleMinRadiusFrac  = 100  // min radius = smaller dimension / this
	circleMaxRadiusPct   = 15   // max radius = this % of smaller dimension

	// Confidence assigned to every fallback detection, lower than typical
	// segmented detections: a fitted circle with no color evidence is a
	// weaker claim.
	circleConfidence = 0.5
)

// circle is an internal Hough candidate before conversion to a Detection.
type circle struct {
	center Point
	radius int
	votes  int
}

// FallbackCircles searches for circular objects when color segmentation
// finds nothing.
//
// The image is converted to grayscale with a light blur, reduced to a
// Canny-style edge map, and scanned with a Hough circle transform:
//
//  1. For each radius from max(5, 1% of the smaller dimension) up to 15%
//     of the smaller dimension, each edge pixel votes for candidate
//     centers every 10° around itself.
//  2. Accumulator cells with at least 60% of 2r votes that are local
//     maxima within a 5px window become candidate circles.
//  3. Candidates are ranked by votes and greedily deduplicated: a circle
//     whose center lies within 20px of an accepted one is discarded.
//
// Each surviving circle (center cx,cy, radius r) becomes a Detection with
// box [cx-r, cy-r, cx+r, cy+r] (clamping is the pipeline's job), the fixed
// 0.5 confidence, and area (2r)² computed from the unclamped radius.
//
// FallbackCircles never fails: degenerate inputs (nil image, dimensions
// too small to fit the minimum radius) produce an empty list.
//
// # Performance
//
// Cost is O(width x height x radii x 36). On large photographs the radius
// range grows with the image, so this is by far the most expensive stage;
// it only runs when both the model and segmentation found nothing.
func FallbackCircles(img image.Image) []Detection {
	if img == nil {
		return []Detection{}
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return []Detection{}
	}

	smaller := width
	if height < smaller {
		smaller = height
	}
	minRadius := smaller / circleMinRadiusFrac
	if minRadius < circleMinRadiusFloor {
		minRadius = circleMinRadiusFloor
	}
	maxRadius := smaller * circleMaxRadiusPct / 100
	if maxRadius < minRadius {
		return []Detection{}
	}

	edges := edgeMap(imaging.SmoothGray(img))

	found := make([]circle, 0)
	for radius := minRadius; radius <= maxRadius; radius++ {
		accumulator := make([]int, width*height)

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !edges.At(x, y) {
					continue
				}
				for angle := 0; angle < 360; angle += circleVoteStep {
					rad := float64(angle) * math.Pi / 180
					cx := x - int(float64(radius)*math.Cos(rad))
					cy := y - int(float64(radius)*math.Sin(rad))
					if cx >= 0 && cx < width && cy >= 0 && cy < height {
						accumulator[cy*width+cx]++
					}
				}
			}
		}

		threshold := int(float64(2*radius) * circleVoteRatio)
		for y := radius; y < height-radius; y++ {
			for x := radius; x < width-radius; x++ {
				votes := accumulator[y*width+x]
				if votes < threshold {
					continue
				}

				isMax := true
				for dy := -circlePeakWindow; dy <= circlePeakWindow && isMax; dy++ {
					for dx := -circlePeakWindow; dx <= circlePeakWindow && isMax; dx++ {
						if dy == 0 && dx == 0 {
							continue
						}
						ny, nx := y+dy, x+dx
						if ny >= 0 && ny < height && nx >= 0 && nx < width {
							if accumulator[ny*width+nx] > votes {
								isMax = false
							}
						}
					}
				}

				if isMax {
					found = append(found, circle{
						center: Point{X: x, Y: y},
						radius: radius,
						votes:  votes,
					})
				}
			}
		}
	}

	// Strongest candidates claim their neighborhood first.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].votes > found[j].votes
	})
	kept := dedupeCircles(found, circleMinDistance)

	detections := make([]Detection, 0, len(kept))
	for _, c := range kept {
		diameter := 2 * c.radius
		detections = append(detections, Detection{
			Bounds: Bounds{
				X1: c.center.X - c.radius,
				Y1: c.center.Y - c.radius,
				X2: c.center.X + c.radius,
				Y2: c.center.Y + c.radius,
			},
			Confidence: circleConfidence,
			Class:      classBlueberry,
			Area:       float64(diameter * diameter),
		})
	}
	return detections
}

// dedupeCircles keeps the first circle of every cluster of centers closer
// than minDist, in input order. With the input sorted by votes this keeps
// the strongest candidate of each cluster.
func dedupeCircles(circles []circle, minDist int) []circle {
	if len(circles) == 0 {
		return circles
	}

	kept := make([]circle, 0)
	for _, c := range circles {
		duplicate := false
		for _, k := range kept {
			dx := c.center.X - k.center.X
			dy := c.center.Y - k.center.Y
			if math.Sqrt(float64(dx*dx+dy*dy)) < float64(minDist) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
		}
	}
	return kept
}
