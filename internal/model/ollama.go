package model

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/imaging"
)

// visionPrompt asks a vision model for berry boxes in a machine-readable
// shape. Wording matters: without the HARD RULES block most open models
// answer in prose or pixel coordinates.
const visionPrompt = `You are a fruit detector for blueberry field photos.

Return JSON only:
{
  "detections": [
    {"label": "ripe", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the box top-left corner.
- One entry per visible blueberry; each box must tightly enclose a single berry.
- label is the berry's ripeness: "ripe" for dark blue or purple, "semi_ripe" for reddish or pale blue, "unripe" for green.
- confidence is your certainty in [0,1] that the box contains a blueberry.
- If no blueberries are visible, return {"detections": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// visionSendLimit caps the longest side of the frame sent to the model.
// Vision models downscale their input anyway; sending full-resolution
// field photos just burns upload time.
const visionSendLimit = 1024

// chatTimeout is applied when the caller's context carries no deadline.
// Local vision models on CPU can take minutes per frame.
const chatTimeout = 300 * time.Second

// Ollama prompts a local vision model for bounding boxes through the
// Ollama chat API.
//
// The model's reply is parsed fail-soft: code fences, stray prose and
// trailing commas are tolerated, and anything still unparseable reads as
// "no detections" so the pipeline falls back to color segmentation.
type Ollama struct {
	client    *api.Client
	model     string
	threshold float64
	available atomic.Bool
}

// NewOllama returns an adapter for the Ollama server at host (scheme and
// host, e.g. "http://localhost:11434"; any path is ignored). model names
// the vision model to prompt. threshold at or below zero selects
// DefaultThreshold.
func NewOllama(host, model string, threshold float64) (*Ollama, error) {
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	base := &url.URL{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Ollama{
		client:    api.NewClient(base, http.DefaultClient),
		model:     model,
		threshold: threshold,
	}, nil
}

// visionResult mirrors the JSON shape requested by visionPrompt.
type visionResult struct {
	Detections []visionDetection `json:"detections"`
}

type visionDetection struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        visionBox `json:"box"`
}

type visionBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detect implements detection.Primary by prompting the vision model.
func (o *Ollama) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, chatTimeout)
		defer cancel()
	}

	sent := imaging.ResizeLimit(img, visionSendLimit)
	payload, err := imaging.EncodeJPEG(sent, uploadQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: visionPrompt,
				Images:  []api.ImageData{api.ImageData(payload)},
			},
		},
		Stream: &streamFalse,
	}

	var reply string
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	sentW := sent.Bounds().Dx()
	sentH := sent.Bounds().Dy()

	raw := parseVisionResult(reply)
	out := make([]detection.Detection, 0, len(raw))
	for _, v := range raw {
		if v.Confidence < o.threshold {
			continue
		}
		b := boxToBounds(v.Box, srcW, srcH, sentW, sentH)
		if b.Width() <= 0 || b.Height() <= 0 {
			continue
		}
		det := detection.Detection{
			Bounds:     b,
			Confidence: v.Confidence,
			Class:      v.Label,
			Area:       float64(b.Width() * b.Height()),
		}
		if m, ok := detection.ParseMaturity(v.Label); ok {
			det.Maturity = m
		}
		out = append(out, det)
	}
	return out, nil
}

// boxToBounds converts one model box to pixel bounds in the source image.
// Models occasionally ignore the normalized-coordinates rule and answer in
// pixels of the downscaled frame they were sent; values above 1 are treated
// as such and rescaled.
func boxToBounds(b visionBox, srcW, srcH, sentW, sentH int) detection.Bounds {
	x, y, w, h := b.X, b.Y, b.W, b.H
	if x > 1 || y > 1 || w > 1 || h > 1 {
		x /= float64(sentW)
		y /= float64(sentH)
		w /= float64(sentW)
		h /= float64(sentH)
	}
	x = clampUnit(x)
	y = clampUnit(y)
	w = clampUnit(w)
	h = clampUnit(h)
	return detection.Bounds{
		X1: int(x * float64(srcW)),
		Y1: int(y * float64(srcH)),
		X2: int((x + w) * float64(srcW)),
		Y2: int((y + h) * float64(srcH)),
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// parseVisionResult extracts the detection list from a model reply.
// Anything that still fails to parse after sanitizing reads as an empty
// list; a chatty model must not abort the analysis.
func parseVisionResult(raw string) []visionDetection {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil
	}
	var result visionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	return result.Detections
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON strips code fences, comments and trailing commas from a
// model reply and keeps only the outermost JSON object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// Healthy probes the Ollama server and records the outcome for Info.
func (o *Ollama) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := o.client.Heartbeat(ctx); err != nil {
		o.available.Store(false)
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	o.available.Store(true)
	return nil
}

// Info implements detection.Primary. Available reflects the most recent
// health probe, not a live check.
func (o *Ollama) Info() detection.ModelInfo {
	return detection.ModelInfo{
		Backend:             "ollama",
		Model:               o.model,
		Available:           o.available.Load(),
		ConfidenceThreshold: o.threshold,
		Classes:             ripenessClasses,
	}
}
