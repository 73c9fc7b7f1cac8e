package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage builds an in-memory image filled with a single color.
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// encodePNG returns the PNG encoding of an image.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecode_PNG(t *testing.T) {
	data := encodePNG(t, createTestImage(100, 80, color.RGBA{255, 0, 0, 255}))

	img, format, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "png" {
		t.Errorf("format: got %s, want png", format)
	}
	b := img.Bounds()
	if b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", b.Dx(), b.Dy())
	}
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(60, 40, color.RGBA{0, 0, 255, 255}), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}

	img, format, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format: got %s, want jpeg", format)
	}
	if img.Bounds().Dx() != 60 {
		t.Errorf("width: got %d, want 60", img.Bounds().Dx())
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, _, err := Decode([]byte("not an image"))
	if err == nil {
		t.Error("Decode should fail for non-image bytes")
	}
}

func TestDecode_Empty(t *testing.T) {
	_, _, err := Decode(nil)
	if err == nil {
		t.Error("Decode should fail for empty input")
	}
}

func TestEncodeJPEG_RoundTrip(t *testing.T) {
	src := createTestImage(50, 50, color.RGBA{10, 20, 200, 255})

	data, err := EncodeJPEG(src, 90)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("EncodeJPEG returned no bytes")
	}

	img, format, err := Decode(data)
	if err != nil {
		t.Fatalf("decoding encoded jpeg failed: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format: got %s, want jpeg", format)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 50 {
		t.Errorf("dimensions changed: got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")

	if err := SaveJPEG(createTestImage(30, 30, color.RGBA{200, 200, 0, 255}), path, 85); err != nil {
		t.Fatalf("SaveJPEG failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("saved file is empty")
	}
}

func TestSaveJPEG_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.jpg")

	if err := SaveJPEG(createTestImage(10, 10, color.RGBA{0, 0, 0, 255}), path, 85); err == nil {
		t.Error("SaveJPEG should fail when the directory does not exist")
	}
}

func TestResolution(t *testing.T) {
	if got := Resolution(createTestImage(800, 600, color.RGBA{})); got != "800x600" {
		t.Errorf("Resolution: got %s, want 800x600", got)
	}

	// Non-zero-origin bounds still report width x height.
	sub := image.NewRGBA(image.Rect(10, 20, 110, 70))
	if got := Resolution(sub); got != "100x50" {
		t.Errorf("Resolution with offset bounds: got %s, want 100x50", got)
	}
}

func TestAllowedExtension(t *testing.T) {
	allowed := []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp"}

	tests := []struct {
		filename string
		want     bool
	}{
		{"photo.jpg", true},
		{"photo.JPG", true},
		{"berries.jpeg", true},
		{"scan.png", true},
		{"anim.gif", true},
		{"old.bmp", true},
		{"big.tiff", true},
		{"modern.webp", true},
		{"document.pdf", false},
		{"archive.zip", false},
		{"noextension", false},
		{"", false},
		{".hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := AllowedExtension(tt.filename, allowed); got != tt.want {
				t.Errorf("AllowedExtension(%q): got %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestAllowedExtension_DottedList(t *testing.T) {
	// Config files may list extensions with leading dots.
	if !AllowedExtension("photo.png", []string{".png"}) {
		t.Error("AllowedExtension should accept dotted allow-list entries")
	}
}
