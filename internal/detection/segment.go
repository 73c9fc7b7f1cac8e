package detection

import (
	"image"

	"github.com/fernwood/berrysight/internal/imaging"
)

// HSVRange is an inclusive HSV inclusion test, with hue on the 0-179 scale
// and saturation/value on 0-255.
type HSVRange struct {
	MinH, MaxH float64
	MinS, MaxS float64
	MinV, MaxV float64
}

// Contains reports whether the given HSV triple lies inside the range.
// All bounds are inclusive.
func (r HSVRange) Contains(h, s, v float64) bool {
	return h >= r.MinH && h <= r.MaxH &&
		s >= r.MinS && s <= r.MaxS &&
		v >= r.MinV && v <= r.MaxV
}

// Segmentation color ranges. Blueberries photographed in the field span a
// blue-leaning and a purple-leaning band; a pixel matching either belongs
// to the candidate mask. The bounds are empirically tuned fixed constants;
// changing them changes which fruit is found.
var (
	blueRange   = HSVRange{MinH: 85, MaxH: 140, MinS: 20, MaxS: 255, MinV: 30, MaxV: 255}
	purpleRange = HSVRange{MinH: 140, MaxH: 170, MinS: 20, MaxS: 255, MinV: 30, MaxV: 255}
)

// Mask cleanup parameters: a 5x5 window (radius 2) for the majority filter
// and the structuring element, one opening pass to drop speckle, then two
// closing passes to bridge gaps between berry fragments. The opening must
// run first; closing first would weld the speckle into the blobs.
const (
	maskWindowRadius = 2
	maskOpenPasses   = 1
	maskClosePasses  = 2
)

// ColorMask segments an image into the binary mask of candidate berry
// pixels.
//
// The image is scanned once in HSV space; pixels inside the blue or purple
// range are set. The raw mask is then denoised with a 5x5 majority filter,
// opened once and closed twice, producing solid blobs suitable for the
// connected-component search.
//
// ColorMask is a pure function of the image: no side effects, safe for
// concurrent use.
func ColorMask(img image.Image) *Mask {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	mask := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			h, s, v := imaging.HSV(img.At(x+bounds.Min.X, y+bounds.Min.Y))
			if blueRange.Contains(h, s, v) || purpleRange.Contains(h, s, v) {
				mask.Set(x, y, true)
			}
		}
	}

	mask = mask.Median(maskWindowRadius)
	mask = mask.Open(maskWindowRadius, maskOpenPasses)
	mask = mask.Close(maskWindowRadius, maskClosePasses)
	return mask
}
