// Package detection locates candidate berries in field photographs.
//
// This package implements the detection half of the analysis pipeline: a
// chain of strategies that turns one still image into a list of bounding
// boxes, each tried only when the previous one found nothing.
//
// # Strategy Chain
//
// The Pipeline tries, in order:
//
//  1. Primary model: an externally trained detector behind the Primary
//     interface. Its output is trusted verbatim (confidence, class, and any
//     ripeness label it supplies).
//  2. Color segmentation: an HSV threshold mask over the blue and purple
//     bands (ColorMask), cleaned with a majority filter and morphological
//     open/close, then cut into connected components (MaskRegions) filtered
//     by area and aspect ratio.
//  3. Circle fallback: a Hough circle transform over a Canny-style edge map
//     (FallbackCircles) for images where color gives nothing to hold on to,
//     e.g. unripe green fruit against green foliage.
//
// A failing or absent primary model silently degrades to the next strategy;
// the only error the pipeline surfaces is an unusable input image.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// After the pipeline runs, every box is clamped to [0,width-1] x
// [0,height-1]; a box that clamping would collapse is expanded by one pixel
// rather than dropped.
//
// # Confidence Scores
//
// Scores are in [0,1] but mean different things per strategy:
//   - Model detections carry the model's own scores
//   - Segmented regions carry min(0.99, area / (0.02 x image area)), a
//     saturating heuristic that rewards larger blobs
//   - Circle detections carry a fixed 0.5, an explicit marker of the
//     weakest evidence class
//
// # Determinism
//
// Given the same image the chain is fully deterministic, but component and
// circle enumeration order is an implementation detail. Downstream
// aggregation is order-independent; tests should not assert on ordering
// either.
//
// # Performance
//
// Segmentation and component extraction are linear in the pixel count. The
// circle fallback is the expensive stage, O(pixels x radius range x 36),
// and only runs when everything else came up empty.
package detection
