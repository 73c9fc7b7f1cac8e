package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Light smoothing applied before edge detection; enough to suppress sensor
// noise without erasing berry outlines.
const grayBlurRadius = 1.0

// SmoothGray converts an image to grayscale and applies a light Gaussian
// blur, producing the input expected by the circular-object search.
//
// The result is an RGBA image whose R, G and B channels carry the same
// gray value; GrayAt reads it back as a single intensity.
func SmoothGray(img image.Image) *image.RGBA {
	return blur.Gaussian(effect.Grayscale(img), grayBlurRadius)
}

// GrayAt returns the intensity of a pixel in a grayscale image produced by
// SmoothGray. No bounds checking is performed; the caller must ensure the
// coordinates are valid.
func GrayAt(img *image.RGBA, x, y int) uint8 {
	i := img.PixOffset(x, y)
	return img.Pix[i]
}
