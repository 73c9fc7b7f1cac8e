package detection

import "math"

// Class name attached to every heuristic detection. The primary model may
// supply finer-grained class names; the color and circle strategies only
// ever claim "blueberry".
const classBlueberry = "blueberry"

// Region filter constants. The area floor is relative to the image with an
// absolute minimum, so tiny noise blobs are rejected on large and small
// images alike; the aspect band encodes the round-object assumption.
// Empirically tuned.
const (
	regionAreaFloor     = 100.0  // absolute minimum area, px²
	regionAreaFraction  = 0.0005 // relative minimum: fraction of image area
	regionMinAspect     = 0.5    // width/height lower bound
	regionMaxAspect     = 1.8    // width/height upper bound
	regionConfScale     = 0.02   // area fraction at which confidence saturates
	regionMaxConfidence = 0.99
)

// MaskRegions extracts candidate detections from a segmentation mask.
//
// Connected components are gathered with an 8-connected flood fill. Each
// component is kept only if:
//   - its pixel count is at least max(100, 0.0005 x image area), and
//   - its bounding-box aspect ratio (width/height) lies within [0.5, 1.8].
//
// Components failing either test are discarded silently; they are noise or
// non-round shapes, not errors. Surviving components become Detections with
// confidence min(0.99, area / (0.02 x image area)): a saturating heuristic
// score, not a calibrated probability. Maturity is left unset.
//
// Component enumeration order follows the top-left-most pixel of each
// component; callers must not rely on it, as downstream aggregation is
// order-independent.
func MaskRegions(m *Mask) []Detection {
	imageArea := float64(m.Width * m.Height)
	minArea := math.Max(regionAreaFloor, regionAreaFraction*imageArea)

	visited := make([]bool, m.Width*m.Height)
	detections := make([]Detection, 0)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.At(x, y) || visited[y*m.Width+x] {
				continue
			}
			pixels := m.component(visited, x, y)
			area := float64(len(pixels))
			if area < minArea {
				continue
			}

			minX, minY := m.Width, m.Height
			maxX, maxY := 0, 0
			for _, p := range pixels {
				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}
			}

			width := maxX - minX + 1
			height := maxY - minY + 1
			aspect := float64(width) / float64(height)
			if aspect < regionMinAspect || aspect > regionMaxAspect {
				continue
			}

			confidence := math.Min(regionMaxConfidence, area/(regionConfScale*imageArea))
			detections = append(detections, Detection{
				Bounds:     Bounds{X1: minX, Y1: minY, X2: maxX + 1, Y2: maxY + 1},
				Confidence: confidence,
				Class:      classBlueberry,
				Area:       area,
			})
		}
	}

	return detections
}

// component collects every mask pixel 8-connected to (startX, startY),
// marking them in visited. Uses an explicit stack rather than recursion to
// stay safe on large blobs.
func (m *Mask) component(visited []bool, startX, startY int) []Point {
	stack := []Point{{X: startX, Y: startY}}
	pixels := make([]Point, 0)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.Width || p.Y < 0 || p.Y >= m.Height {
			continue
		}
		idx := p.Y*m.Width + p.X
		if visited[idx] || !m.pix[idx] {
			continue
		}

		visited[idx] = true
		pixels = append(pixels, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return pixels
}
