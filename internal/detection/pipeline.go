package detection

import (
	"context"
	"image"
	"log"
)

// Pipeline locates candidate berries in an image by trying a chain of
// strategies, each only when the previous one produced nothing:
//
//  1. The primary trained model, when one is configured. Its detections
//     are used as-is, confidence and class preserved.
//  2. Color segmentation followed by connected-component extraction.
//  3. The Hough circle fallback.
//
// A Pipeline holds no per-call state and is safe for concurrent use as
// long as the injected Primary is.
type Pipeline struct {
	primary Primary
}

// NewPipeline creates a pipeline around an optional primary detector.
// Passing nil means no trained model is available; the pipeline then
// starts directly at color segmentation.
func NewPipeline(primary Primary) *Pipeline {
	return &Pipeline{primary: primary}
}

// ModelInfo describes the configured primary backend, or a placeholder
// when the pipeline is running on heuristics alone.
func (p *Pipeline) ModelInfo() ModelInfo {
	if p.primary == nil {
		return ModelInfo{
			Backend: "none",
			Model:   "color-heuristics",
			Classes: []string{classBlueberry},
		}
	}
	return p.primary.Info()
}

// Detect runs the strategy chain over one image and returns the selected
// detections with every bounding box clamped to the image.
//
// A primary detector error is logged and treated exactly like "nothing
// found": detection failures must never abort an analysis, so the chain
// simply falls through to the next strategy. The returned slice may be
// empty; the only error Detect itself produces is ErrInvalidImage for a
// nil or zero-dimension input, which no strategy could operate on.
//
// The context bounds only the primary detector call; the heuristic stages
// are pure computation with no suspension points.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, ErrInvalidImage
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidImage
	}

	detections := p.fromPrimary(ctx, img)
	if len(detections) == 0 {
		detections = MaskRegions(ColorMask(img))
	}
	if len(detections) == 0 {
		log.Printf("color segmentation found nothing, running circle fallback")
		detections = FallbackCircles(img)
	}

	clamped := make([]Detection, len(detections))
	for i, d := range detections {
		d.Bounds = d.Bounds.Clamp(width, height)
		clamped[i] = d
	}
	return clamped, nil
}

// fromPrimary queries the trained model if one is configured. Errors are
// demoted to "no detections" so the caller falls back.
func (p *Pipeline) fromPrimary(ctx context.Context, img image.Image) []Detection {
	if p.primary == nil {
		return nil
	}
	detections, err := p.primary.Detect(ctx, img)
	if err != nil {
		log.Printf("primary detector failed, falling back to color segmentation: %v", err)
		return nil
	}
	return detections
}
