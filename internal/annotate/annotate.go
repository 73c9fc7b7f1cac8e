// Package annotate renders detection overlays onto analyzed images.
//
// Each detection gets a bounding-box outline, a circle inscribed at the box
// center, and a "<maturity> (NN.N%)" label above the box. Colors follow the
// web frontend's badge palette so the processed image and the result JSON
// read the same way.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fernwood/berrysight/internal/detection"
)

// strokeWidth is the outline width for boxes and circles.
const strokeWidth = 2

// labelPad is the padding around label text inside its background.
const labelPad = 3

// Maturity display colors (Bootstrap palette).
var (
	colorRipe     = color.RGBA{R: 0, G: 123, B: 255, A: 255}
	colorSemiRipe = color.RGBA{R: 220, G: 53, B: 69, A: 255}
	colorUnripe   = color.RGBA{R: 40, G: 167, B: 69, A: 255}
	colorUnknown  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	colorText     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// labelFace renders annotation labels. Face7x13 is small but stays legible
// after JPEG re-encoding.
var labelFace = basicfont.Face7x13

// maturityColor maps a ripeness class to its display color. Anything
// unrecognized renders gray.
func maturityColor(m detection.Maturity) color.RGBA {
	switch m {
	case detection.MaturityRipe:
		return colorRipe
	case detection.MaturitySemiRipe:
		return colorSemiRipe
	case detection.MaturityUnripe:
		return colorUnripe
	}
	return colorUnknown
}

// Draw renders the detections onto a copy of img and returns it. The input
// image is never modified. Detection bounds are expected in pixel
// coordinates of img, already clamped by the pipeline.
func Draw(img image.Image, detections []detection.Detection) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	for _, det := range detections {
		c := maturityColor(det.Maturity)
		b := det.Bounds

		drawRect(result, b.X1, b.Y1, b.X2, b.Y2, c)

		w := b.Width()
		h := b.Height()
		if w < 0 {
			w = 0
		}
		if h < 0 {
			h = 0
		}
		radius := min(w, h) / 2
		if radius < 1 {
			radius = 1
		}
		drawCircle(result, b.X1+w/2, b.Y1+h/2, radius, c)

		label := string(det.Maturity)
		if label == "" {
			label = string(detection.MaturityUnknown)
		}
		text := fmt.Sprintf("%s (%.1f%%)", label, det.Confidence*100)
		drawLabel(result, b.X1, b.Y1, text, colorText, c)
	}

	return result
}

// set writes one pixel, ignoring coordinates outside the image.
func set(img *image.RGBA, x, y int, c color.RGBA) {
	b := img.Bounds()
	if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
		img.Set(x, y, c)
	}
}

// drawRect outlines the rectangle (x1,y1)-(x2,y2), stroking inward so the
// border never spills outside the box.
func drawRect(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	for t := 0; t < strokeWidth; t++ {
		for x := x1; x <= x2; x++ {
			set(img, x, y1+t, c)
			set(img, x, y2-t, c)
		}
		for y := y1; y <= y2; y++ {
			set(img, x1+t, y, c)
			set(img, x2-t, y, c)
		}
	}
}

// drawCircle outlines a circle of the given radius, thickened by stroking
// adjacent radii.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for t := 0; t < strokeWidth; t++ {
		r := radius - t
		if r < 1 {
			break
		}
		circleOutline(img, cx, cy, r, c)
	}
}

// circleOutline plots one circle with the midpoint algorithm, mirroring
// each computed octant point eight ways.
func circleOutline(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	x, y := r, 0
	d := 1 - r
	for x >= y {
		set(img, cx+x, cy+y, c)
		set(img, cx+y, cy+x, c)
		set(img, cx-y, cy+x, c)
		set(img, cx-x, cy+y, c)
		set(img, cx-x, cy-y, c)
		set(img, cx-y, cy-x, c)
		set(img, cx+y, cy-x, c)
		set(img, cx+x, cy-y, c)
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// drawLabel draws text on a filled background whose bottom-left corner
// sits at the box's top-left corner (x, y), shifted down when the box
// touches the image top.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	tw := font.MeasureString(labelFace, text).Ceil()
	metrics := labelFace.Metrics()
	th := metrics.Height.Ceil()

	yTop := y - th - 2*labelPad
	if yTop < 0 {
		yTop = 0
	}
	yBottom := yTop + th + 2*labelPad
	xRight := x + tw + 2*labelPad

	for py := yTop; py < yBottom; py++ {
		for px := x; px < xRight; px++ {
			set(img, px, py, bg)
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: labelFace,
		Dot:  fixed.P(x+labelPad, yBottom-labelPad-metrics.Descent.Ceil()),
	}
	d.DrawString(text)
}
