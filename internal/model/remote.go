package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/imaging"
)

// DefaultThreshold is the confidence cutoff applied to boxes returned by a
// trained detector. Matches the threshold the bundled blueberry model was
// evaluated with.
const DefaultThreshold = 0.15

// uploadQuality is the JPEG quality used when re-encoding frames for a
// detector backend.
const uploadQuality = 90

// healthTimeout bounds a single backend health probe.
const healthTimeout = 5 * time.Second

// ripenessClasses lists the labels both backends are expected to emit.
var ripenessClasses = []string{"ripe", "semi_ripe", "unripe"}

// Remote queries an external inference service over HTTP.
//
// The frame is posted as a multipart upload in the "image" field to
// <baseURL>/predict; the service answers with a JSON detection list:
//
//	{"detections": [{"bbox": [x1, y1, x2, y2], "class": "ripe", "confidence": 0.92}]}
//
// Box coordinates are pixels in the submitted image. The service is trusted
// to run its own non-maximum suppression; this side only drops detections
// scoring below the configured threshold and normalizes class names to
// ripeness labels where possible.
type Remote struct {
	baseURL   string
	model     string
	threshold float64
	client    *http.Client
	available atomic.Bool
}

// NewRemote returns an adapter for the inference service rooted at baseURL,
// e.g. "http://localhost:8500". model names the served weights for
// diagnostics; empty selects "yolo-blueberry". threshold at or below zero
// selects DefaultThreshold. timeout bounds each prediction request; zero
// means no limit.
func NewRemote(baseURL, model string, threshold float64, timeout time.Duration) *Remote {
	if model == "" {
		model = "yolo-blueberry"
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Remote{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		threshold: threshold,
		client:    &http.Client{Timeout: timeout},
	}
}

// remoteDetection mirrors one entry of the service response.
type remoteDetection struct {
	BBox       []float64 `json:"bbox"`
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
}

// Detect implements detection.Primary by round-tripping the frame through
// the inference service.
func (r *Remote) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	payload, err := imaging.EncodeJPEG(img, uploadQuality)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []remoteDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return r.convert(result.Detections), nil
}

// convert filters and translates wire-format detections. Entries with a
// malformed bbox are skipped rather than failing the whole frame.
func (r *Remote) convert(raw []remoteDetection) []detection.Detection {
	out := make([]detection.Detection, 0, len(raw))
	for _, d := range raw {
		if d.Confidence < r.threshold || len(d.BBox) != 4 {
			continue
		}
		b := detection.Bounds{
			X1: int(d.BBox[0]),
			Y1: int(d.BBox[1]),
			X2: int(d.BBox[2]),
			Y2: int(d.BBox[3]),
		}
		det := detection.Detection{
			Bounds:     b,
			Confidence: d.Confidence,
			Class:      d.Class,
			Area:       float64(b.Width() * b.Height()),
		}
		if m, ok := detection.ParseMaturity(d.Class); ok {
			det.Maturity = m
		}
		out = append(out, det)
	}
	return out
}

// Healthy probes the service's health endpoint and records the outcome for
// Info. Called at startup and from the health handler.
func (r *Remote) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.available.Store(false)
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.available.Store(false)
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}

	r.available.Store(true)
	return nil
}

// Info implements detection.Primary. Available reflects the most recent
// health probe, not a live check.
func (r *Remote) Info() detection.ModelInfo {
	return detection.ModelInfo{
		Backend:             "remote",
		Model:               r.model,
		Available:           r.available.Load(),
		ConfidenceThreshold: r.threshold,
		Classes:             ripenessClasses,
	}
}
