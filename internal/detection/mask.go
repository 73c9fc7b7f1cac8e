package detection

// Mask is a binary image marking candidate-object pixels.
//
// Masks are produced by color segmentation and consumed by the connected
// component search. All cleanup operations (Median, Open, Close) return a
// new Mask and leave the receiver untouched, so a Mask can be shared
// between goroutines once built.
type Mask struct {
	Width  int
	Height int
	pix    []bool
}

// NewMask creates an all-off mask with the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		pix:    make([]bool, width*height),
	}
}

// At reports whether the pixel at (x, y) is set.
// Coordinates outside the mask are reported as off.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.pix[y*m.Width+x]
}

// Set turns the pixel at (x, y) on or off. Out-of-bounds coordinates are
// ignored.
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.pix[y*m.Width+x] = on
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, on := range m.pix {
		if on {
			n++
		}
	}
	return n
}

// Median applies a majority filter over a (2*radius+1) square window,
// removing isolated speckle while preserving blob outlines. At the mask
// border the window is clipped and the majority is taken over the pixels
// actually covered.
func (m *Mask) Median(radius int) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			on, total := m.windowCount(x, y, radius)
			out.pix[y*m.Width+x] = 2*on > total
		}
	}
	return out
}

// Erode turns off every set pixel that has an unset neighbor within a
// (2*radius+1) square window. Pixels beyond the border are treated as set,
// so blobs touching the edge are not eaten from outside the image.
func (m *Mask) Erode(radius int) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.pix[y*m.Width+x] {
				continue
			}
			on, total := m.windowCount(x, y, radius)
			out.pix[y*m.Width+x] = on == total
		}
	}
	return out
}

// Dilate turns on every pixel that has at least one set neighbor within a
// (2*radius+1) square window. Pixels beyond the border are treated as
// unset.
func (m *Mask) Dilate(radius int) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			on, _ := m.windowCount(x, y, radius)
			out.pix[y*m.Width+x] = on > 0
		}
	}
	return out
}

// Open removes speckle by eroding iterations times, then dilating the same
// number of times. Small isolated blobs vanish; larger blobs keep their
// size.
func (m *Mask) Open(radius, iterations int) *Mask {
	out := m
	for i := 0; i < iterations; i++ {
		out = out.Erode(radius)
	}
	for i := 0; i < iterations; i++ {
		out = out.Dilate(radius)
	}
	return out
}

// Close bridges small gaps by dilating iterations times, then eroding the
// same number of times. Nearby blobs merge; holes smaller than the window
// fill in.
func (m *Mask) Close(radius, iterations int) *Mask {
	out := m
	for i := 0; i < iterations; i++ {
		out = out.Dilate(radius)
	}
	for i := 0; i < iterations; i++ {
		out = out.Erode(radius)
	}
	return out
}

// windowCount returns how many pixels are set within the square window of
// the given radius around (x, y), along with the number of in-bounds pixels
// the window covers.
func (m *Mask) windowCount(x, y, radius int) (on, total int) {
	y0, y1 := y-radius, y+radius
	x0, x1 := x-radius, x+radius
	if y0 < 0 {
		y0 = 0
	}
	if x0 < 0 {
		x0 = 0
	}
	if y1 >= m.Height {
		y1 = m.Height - 1
	}
	if x1 >= m.Width {
		x1 = m.Width - 1
	}
	for wy := y0; wy <= y1; wy++ {
		row := wy * m.Width
		for wx := x0; wx <= x1; wx++ {
			total++
			if m.pix[row+wx] {
				on++
			}
		}
	}
	return on, total
}
