package detection

import (
	"context"
	"errors"
	"image"
	"strings"
)

// ErrInvalidImage is returned when an analysis is attempted on a nil image
// or one with zero width or height. No fallback strategy can operate
// without a usable raster, so this is the pipeline's only fatal error.
var ErrInvalidImage = errors.New("invalid image: nil or zero dimensions")

// Maturity is a ripeness class assigned to a detection.
type Maturity string

// Ripeness classes. Empty string means "not classified yet"; the
// aggregation stage folds it into MaturityUnknown.
const (
	MaturityRipe     Maturity = "ripe"
	MaturitySemiRipe Maturity = "semi_ripe"
	MaturityUnripe   Maturity = "unripe"
	MaturityUnknown  Maturity = "unknown"
)

// Recognized reports whether m is one of the three concrete ripeness
// classes. A recognized label supplied by the model always wins over the
// color heuristic; "unknown" and empty labels do not.
func (m Maturity) Recognized() bool {
	switch m {
	case MaturityRipe, MaturitySemiRipe, MaturityUnripe:
		return true
	}
	return false
}

// maturityAliases maps detector class names to ripeness classes. Trained
// models in the field label their classes inconsistently (English, Spanish,
// hyphenated); all known spellings normalize here.
var maturityAliases = map[string]Maturity{
	"ripe":        MaturityRipe,
	"maduro":      MaturityRipe,
	"mature":      MaturityRipe,
	"semi_ripe":   MaturitySemiRipe,
	"semi-ripe":   MaturitySemiRipe,
	"semiripe":    MaturitySemiRipe,
	"semimaduro":  MaturitySemiRipe,
	"semi_maduro": MaturitySemiRipe,
	"unripe":      MaturityUnripe,
	"no_maduro":   MaturityUnripe,
	"nomaduro":    MaturityUnripe,
	"inmaduro":    MaturityUnripe,
	"verde":       MaturityUnripe,
	"green":       MaturityUnripe,
}

// ParseMaturity normalizes a detector class name to a ripeness class.
// Matching is case-insensitive. The second return value is false when the
// name does not describe a ripeness state (e.g. a plain "blueberry" class).
func ParseMaturity(label string) (Maturity, bool) {
	m, ok := maturityAliases[strings.ToLower(strings.TrimSpace(label))]
	return m, ok
}

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive for iteration, inclusive for bounds)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Width returns the horizontal extent in pixels (X2 - X1).
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent in pixels (Y2 - Y1).
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Clamp restricts a box to [0,width-1] x [0,height-1].
//
// A box that collapses to zero width or height under clamping is expanded
// by one pixel instead of being dropped; when the box sits at the far edge
// and cannot grow outward, it shifts one pixel inward. On images narrower
// or shorter than two pixels no expansion is possible and the degenerate
// box is returned as-is; the maturity classifier treats such crops as
// unclassifiable rather than erroring.
func (b Bounds) Clamp(width, height int) Bounds {
	x1 := clampInt(b.X1, 0, width-1)
	y1 := clampInt(b.Y1, 0, height-1)
	x2 := clampInt(b.X2, 0, width-1)
	y2 := clampInt(b.Y2, 0, height-1)

	if x2 <= x1 {
		if x1+1 <= width-1 {
			x2 = x1 + 1
		} else if x1 >= 1 {
			x1 = width - 2
			x2 = width - 1
		}
	}
	if y2 <= y1 {
		if y1+1 <= height-1 {
			y2 = y1 + 1
		} else if y1 >= 1 {
			y1 = height - 2
			y2 = height - 1
		}
	}

	return Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// clampInt restricts a value to the range [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Detection is one located object with its geometry, detector metadata and
// (after classification) ripeness fields.
//
// Detections are created by the Pipeline with the maturity fields empty and
// completed by the maturity classifier, which returns populated copies
// rather than mutating in place.
type Detection struct {
	// Bounds is the bounding box, clamped to the image by the pipeline.
	Bounds Bounds `json:"bounds"`

	// Confidence is the detector's score in [0,1]. Segmented regions carry
	// an area-derived heuristic score; circle fallback detections carry a
	// fixed 0.5.
	Confidence float64 `json:"confidence"`

	// Class is the detector's class name. May be empty.
	Class string `json:"class"`

	// Area is the detected region's area in square pixels. For segmented
	// regions this is the component's pixel count; for circles it is the
	// squared diameter of the fitted circle.
	Area float64 `json:"area"`

	// Maturity is the ripeness class, empty until classified.
	Maturity Maturity `json:"maturity,omitempty"`

	// MaturityConfidence scores the ripeness label in [0,1], derived from
	// the hue variance of the cropped region.
	MaturityConfidence float64 `json:"maturity_confidence"`
}

// ModelInfo describes a primary detector backend for diagnostics endpoints.
type ModelInfo struct {
	Backend             string   `json:"backend"`
	Model               string   `json:"model"`
	Available           bool     `json:"available"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	Classes             []string `json:"classes,omitempty"`
}

// Primary is the external trained-model collaborator queried before any
// heuristic strategy runs.
//
// Implementations must be safe for concurrent use; the pipeline may be
// shared by several analyses. Detect returns detections in source-image
// pixel coordinates, an empty slice for "nothing found", and an error only
// for invocation failures; the pipeline treats errors as "nothing found"
// and falls back, never propagating them.
type Primary interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Info() ModelInfo
}
