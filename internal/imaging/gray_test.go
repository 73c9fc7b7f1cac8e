package imaging

import (
	"image/color"
	"testing"
)

func TestSmoothGray_Dimensions(t *testing.T) {
	gray := SmoothGray(createTestImage(40, 30, color.RGBA{60, 130, 210, 255}))
	b := gray.Bounds()
	if b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", b.Dx(), b.Dy())
	}
}

func TestSmoothGray_Extremes(t *testing.T) {
	// Uniform extremes survive grayscale conversion and blur; check the
	// center pixel so kernel edge handling cannot interfere.
	white := SmoothGray(createTestImage(20, 20, color.RGBA{255, 255, 255, 255}))
	if got := GrayAt(white, 10, 10); got != 255 {
		t.Errorf("white intensity: got %d, want 255", got)
	}

	black := SmoothGray(createTestImage(20, 20, color.RGBA{0, 0, 0, 255}))
	if got := GrayAt(black, 10, 10); got != 0 {
		t.Errorf("black intensity: got %d, want 0", got)
	}
}

func TestSmoothGray_LuminanceOrdering(t *testing.T) {
	// A mid blue must land strictly between black and white.
	blue := SmoothGray(createTestImage(20, 20, color.RGBA{0, 0, 255, 255}))
	got := GrayAt(blue, 10, 10)
	if got == 0 || got == 255 {
		t.Errorf("blue intensity: got %d, want a mid-range value", got)
	}
}
