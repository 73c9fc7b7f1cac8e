package detection

import (
	"image"
	"math"

	"github.com/fernwood/berrysight/internal/imaging"
)

// Gradient thresholds for the circle search's edge stage, in intensity
// units (0-255). Pixels above the high threshold are strong edges; pixels
// between the thresholds survive only when adjacent to a strong edge.
// Fixed sensitivity constants of the fallback search.
const (
	edgeThresholdHigh = 60.0
	edgeThresholdLow  = 30.0
)

// edgeMap computes a Canny-style edge map from a smoothed grayscale image.
//
// The input is expected to come from imaging.SmoothGray, which already
// applied the noise-reduction blur, so the stages here are:
//
//  1. Gradient computation: Sobel operators for X and Y gradients,
//     magnitude = sqrt(Gx² + Gy²), direction = atan2(Gy, Gx)
//  2. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima along the gradient direction
//  3. Hysteresis thresholding: strong edges always kept, weak edges kept
//     only when an 8-neighbor is strong
//
// The result is a Mask with edge pixels set. Border pixels are never edges.
func edgeMap(gray *image.RGBA) *Mask {
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	intensity := make([][]float64, height)
	for y := 0; y < height; y++ {
		intensity[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			intensity[y][x] = float64(imaging.GrayAt(gray, x+bounds.Min.X, y+bounds.Min.Y))
		}
	}

	sobelX := [][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clampInt(y+ky, 0, height-1)
					px := clampInt(x+kx, 0, width-1)
					gx += intensity[py][px] * sobelX[ky+1][kx+1]
					gy += intensity[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression along the gradient direction.
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Double threshold with single-pass hysteresis.
	edges := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := suppressed[y][x]
			if val >= edgeThresholdHigh {
				edges.Set(x, y, true)
				continue
			}
			if val < edgeThresholdLow {
				continue
			}
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clampInt(y+ky, 0, height-1)
					px := clampInt(x+kx, 0, width-1)
					if suppressed[py][px] >= edgeThresholdHigh {
						edges.Set(x, y, true)
					}
				}
			}
		}
	}

	return edges
}
