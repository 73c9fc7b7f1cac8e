package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropRegion extracts the rectangle [x1,x2) x [y1,y2) from an image.
//
// The rectangle is intersected with the image bounds; a region that falls
// entirely outside produces an empty image, which AnalyzeHSV then rejects.
// Callers that need hard validation should check the result's bounds.
func CropRegion(img image.Image, x1, y1, x2, y2 int) *image.NRGBA {
	return imaging.Crop(img, image.Rect(x1, y1, x2, y2))
}

// ResizeLimit scales an image down so its longest side is at most limit
// pixels, preserving aspect ratio. Images already within the limit are
// returned as a clone, unscaled. Used to bound payloads sent to remote
// vision backends; detection geometry is never computed on the result.
func ResizeLimit(img image.Image, limit int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return imaging.Clone(img)
	}
	if w >= h {
		return imaging.Resize(img, limit, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, limit, imaging.Lanczos)
}
