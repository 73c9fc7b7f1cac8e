package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV converts a pixel color to hue/saturation/value on the threshold scale.
//
// Parameters:
//   - c: Any color.Color. Fully transparent pixels are treated as black.
//
// Returns hue on 0-179, saturation on 0-255 and value on 0-255. The
// underlying conversion produces hue in degrees (0-360) and saturation/value
// as fractions; both are rescaled here so every threshold in the module can
// be expressed on a single fixed scale.
func HSV(c color.Color) (h, s, v float64) {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		// Zero alpha carries no color information.
		return 0, 0, 0
	}
	h, s, v = cf.Hsv()
	return h / 2.0, s * 255.0, v * 255.0
}

// HSVStats summarizes the HSV distribution of an image region.
//
// Means drive the ripeness classification bands; the hue variance drives the
// classification confidence (uniform color = high confidence).
type HSVStats struct {
	// MeanHue is the average hue on the 0-179 scale.
	MeanHue float64 `json:"mean_hue"`

	// MeanSaturation is the average saturation on the 0-255 scale.
	MeanSaturation float64 `json:"mean_saturation"`

	// MeanValue is the average brightness on the 0-255 scale.
	MeanValue float64 `json:"mean_value"`

	// HueVariance is the population variance of the hue channel.
	HueVariance float64 `json:"hue_variance"`

	// Pixels is the number of pixels the statistics cover.
	Pixels int `json:"pixels"`
}

// AnalyzeHSV computes HSV statistics over every pixel of an image.
//
// Returns an error for a nil image or one with an empty bounds rectangle;
// callers treat that as a degenerate region rather than a fatal failure.
func AnalyzeHSV(img image.Image) (*HSVStats, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n <= 0 {
		return nil, fmt.Errorf("empty region %v", bounds)
	}

	var sumH, sumSqH, sumS, sumV float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			h, s, v := HSV(img.At(x, y))
			sumH += h
			sumSqH += h * h
			sumS += s
			sumV += v
		}
	}

	count := float64(n)
	meanH := sumH / count
	return &HSVStats{
		MeanHue:        meanH,
		MeanSaturation: sumS / count,
		MeanValue:      sumV / count,
		HueVariance:    sumSqH/count - meanH*meanH,
		Pixels:         n,
	}, nil
}
