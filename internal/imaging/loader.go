package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"path/filepath"
	"strings"

	webp "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Decode decodes raw image bytes into an image.Image.
//
// Parameters:
//   - data: Encoded image bytes in any supported format (JPEG, PNG, GIF,
//     BMP, TIFF, WebP).
//
// Returns:
//   - image.Image: The decoded image. The concrete type depends on the
//     format and color model (e.g., *image.RGBA, *image.NRGBA, *image.YCbCr).
//   - string: The detected format name ("jpeg", "png", "webp", ...).
//   - error: Non-nil if no decoder accepts the bytes.
//
// WebP variants that the registered decoder rejects are retried with a
// second decoder before the function gives up, so lossless and alpha WebP
// uploads still load.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}

	// Some WebP encodings are not handled by the registered decoder.
	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return img, "webp", nil
	}

	return nil, "", fmt.Errorf("failed to decode image: %w", err)
}

// EncodeJPEG encodes an image as JPEG bytes at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveJPEG writes an image to path as JPEG at the given quality (1-100).
//
// The destination directory must already exist. The file is written
// atomically from the caller's perspective only insofar as the underlying
// encoder writes it in one pass; concurrent writers to the same path must
// be coordinated by the caller.
func SaveJPEG(img image.Image, path string, quality int) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Resolution formats an image's dimensions as a "WxH" string, e.g. "800x600".
func Resolution(img image.Image) string {
	b := img.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
}

// AllowedExtension reports whether filename has one of the allowed
// extensions. Comparison is case-insensitive and ignores the leading dot,
// so "photo.JPG" matches an allowed list containing "jpg".
func AllowedExtension(filename string, allowed []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimPrefix(a, ".")) {
			return true
		}
	}
	return false
}
