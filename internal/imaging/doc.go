// Package imaging provides image decoding and color-space primitives for the
// analysis service.
//
// This package implements the format handling and pixel-level color operations
// the detection and maturity packages are built on: decoding uploads in the
// supported raster formats, converting pixels to HSV on the scale used by the
// segmentation thresholds, computing per-region HSV statistics, and preparing
// grayscale inputs for the circle search. All operations work with standard Go
// image.Image types and use a coordinate system where (0,0) is at the top-left
// corner, X increases rightward, and Y increases downward.
//
// # HSV Scale
//
// Hue is reported on a 0-179 scale and saturation/value on 0-255, matching the
// scale the segmentation and ripeness thresholds are defined on. Conversions
// happen in exactly one place (HSV) so the threshold constants elsewhere in
// the module never need rescaling.
//
// # Supported Formats
//
// Decode handles JPEG, PNG, GIF, BMP, TIFF and WebP. WebP images that the
// registered decoder rejects (some lossless/alpha variants) fall back to a
// second decoder before giving up.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use on distinct images.
// Callers sharing a mutable image across goroutines must synchronize access
// themselves.
package imaging
