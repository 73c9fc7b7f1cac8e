// Package analysis orchestrates one full image analysis: decode, detect,
// classify, aggregate, recommend, report, annotate, persist.
//
// The Analyzer is the single collaborator behind the upload endpoints;
// everything it composes is a pure package underneath. Annotation and
// history failures degrade the result instead of failing it: an analysis
// that detected fruit is worth returning even when the annotated JPEG or
// the database write did not land.
package analysis

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/berrysight/internal/annotate"
	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/history"
	"github.com/fernwood/berrysight/internal/imaging"
	"github.com/fernwood/berrysight/internal/maturity"
	"github.com/fernwood/berrysight/internal/report"
)

// processedQuality is the JPEG quality of annotated output images.
const processedQuality = 90

// Analyzer wires the full processing chain behind the upload endpoints.
type Analyzer struct {
	pipeline     *detection.Pipeline
	store        history.Store
	uploadDir    string
	processedDir string
}

// New creates an Analyzer and ensures both storage directories exist.
func New(pipeline *detection.Pipeline, store history.Store, uploadDir, processedDir string) (*Analyzer, error) {
	for _, dir := range []string{uploadDir, processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &Analyzer{
		pipeline:     pipeline,
		store:        store,
		uploadDir:    uploadDir,
		processedDir: processedDir,
	}, nil
}

// Result is the complete outcome of one analysis.
type Result struct {
	// Filename is the stored upload name, unique per analysis.
	Filename string `json:"filename"`

	// Detections carry clamped bounds and completed maturity fields.
	Detections    []detection.Detection `json:"detections"`
	TotalDetected int                   `json:"total_detected"`

	Distribution   maturity.Distribution   `json:"maturity_distribution"`
	Recommendation maturity.Recommendation `json:"recommendation"`
	Report         report.Report           `json:"report"`

	// ProcessedFile names the annotated JPEG under the processed
	// directory; empty when annotation could not be saved.
	ProcessedFile string `json:"processed_image"`

	ProcessingTimeMS float64 `json:"processing_time_ms"`
	ImageResolution  string  `json:"image_resolution"`

	// HistoryID is the persisted record id; zero when the save failed.
	HistoryID int64  `json:"analysis_id,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
}

// Analyze stores an upload under a unique name, runs the full chain and
// persists the outcome to history.
//
// A decode failure reports detection.ErrInvalidImage so callers can
// distinguish a bad upload from an internal fault.
func (a *Analyzer) Analyze(ctx context.Context, originalName string, data []byte) (*Result, error) {
	return a.analyzeNew(ctx, originalName, data, "")
}

// File is one member of a batch upload.
type File struct {
	Name string
	Data []byte
}

// BatchError records one file that could not be analyzed.
type BatchError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult collects the per-file outcomes of one batch upload.
type BatchResult struct {
	BatchID        string              `json:"batch_id"`
	Results        []*Result           `json:"results"`
	Errors         []BatchError        `json:"errors,omitempty"`
	TotalProcessed int                 `json:"total_processed"`
	Summary        report.BatchSummary `json:"summary"`
}

// AnalyzeBatch analyzes each file under one shared batch id. A file that
// fails lands in Errors and never aborts its siblings.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, files []File) *BatchResult {
	out := &BatchResult{
		BatchID: uuid.New().String(),
		Results: []*Result{},
	}

	var reports []report.Report
	for _, f := range files {
		result, err := a.analyzeNew(ctx, f.Name, f.Data, out.BatchID)
		if err != nil {
			out.Errors = append(out.Errors, BatchError{Filename: f.Name, Error: err.Error()})
			continue
		}
		out.Results = append(out.Results, result)
		reports = append(reports, result.Report)
	}

	out.TotalProcessed = len(out.Results)
	out.Summary = report.Summarize(reports)
	return out
}

// AnalyzeStored re-runs the chain on an already-uploaded file. The result
// is not persisted again; history keeps only the original run.
func (a *Analyzer) AnalyzeStored(ctx context.Context, filename string) (*Result, error) {
	start := time.Now()

	name := sanitizeFilename(filename)
	data, err := os.ReadFile(filepath.Join(a.uploadDir, name))
	if err != nil {
		return nil, err
	}

	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err)
	}

	return a.process(ctx, name, data, img, start)
}

// UploadDir returns the directory holding original uploads.
func (a *Analyzer) UploadDir() string { return a.uploadDir }

// ProcessedDir returns the directory holding annotated outputs.
func (a *Analyzer) ProcessedDir() string { return a.processedDir }

// ModelInfo exposes the pipeline's primary detector description.
func (a *Analyzer) ModelInfo() detection.ModelInfo { return a.pipeline.ModelInfo() }

func (a *Analyzer) analyzeNew(ctx context.Context, originalName string, data []byte, batchID string) (*Result, error) {
	start := time.Now()

	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err)
	}

	storedName := uuid.New().String() + "_" + sanitizeFilename(originalName)
	if err := os.WriteFile(filepath.Join(a.uploadDir, storedName), data, 0o644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	result, err := a.process(ctx, storedName, data, img, start)
	if err != nil {
		return nil, err
	}
	result.BatchID = batchID

	rec := history.Record{
		Filename:          storedName,
		ProcessedFilename: result.ProcessedFile,
		TotalDetections:   result.Distribution.Total,
		MaturityScore:     result.Distribution.Score,
		Distribution:      result.Distribution,
		BatchID:           batchID,
	}
	id, err := a.store.Save(ctx, rec)
	if err != nil {
		log.Printf("history save failed for %s: %v", storedName, err)
	} else {
		result.HistoryID = id
	}
	return result, nil
}

// process runs detection through annotation for an already-saved upload.
func (a *Analyzer) process(ctx context.Context, storedName string, data []byte, img image.Image, start time.Time) (*Result, error) {
	detections, err := a.pipeline.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	classified := maturity.ClassifyAll(img, detections)
	dist := maturity.Aggregate(classified)
	rec := maturity.Recommend(dist)

	info := report.ImageInfo{
		Filename:   storedName,
		Resolution: imaging.Resolution(img),
		FileSizeMB: round2(float64(len(data)) / (1 << 20)),
	}
	rep := report.Build(info, classified, dist, rec, a.pipeline.ModelInfo())

	processedName := strings.TrimSuffix(storedName, filepath.Ext(storedName)) + "_processed.jpg"
	annotated := annotate.Draw(img, classified)
	if err := imaging.SaveJPEG(annotated, filepath.Join(a.processedDir, processedName), processedQuality); err != nil {
		log.Printf("saving annotated image for %s: %v", storedName, err)
		processedName = ""
	}

	return &Result{
		Filename:         storedName,
		Detections:       classified,
		TotalDetected:    dist.Total,
		Distribution:     dist,
		Recommendation:   rec,
		Report:           rep,
		ProcessedFile:    processedName,
		ProcessingTimeMS: round2(time.Since(start).Seconds() * 1000),
		ImageResolution:  info.Resolution,
	}, nil
}

// sanitizeFilename keeps the base name and replaces characters that could
// escape the upload directory or break a download header.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		out = "upload"
	}
	return out
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
