// Package report assembles the structured analysis document returned with
// each processed image and condenses batches into a single overview.
package report

import (
	"math"
	"time"

	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/maturity"
)

// Report is the full analysis document for one image.
type Report struct {
	Timestamp        time.Time               `json:"timestamp"`
	ImageInfo        ImageInfo               `json:"image_info"`
	DetectionSummary DetectionSummary        `json:"detection_summary"`
	MaturityAnalysis maturity.Distribution   `json:"maturity_analysis"`
	Recommendations  maturity.Recommendation `json:"recommendations"`
	TechnicalDetails TechnicalDetails        `json:"technical_details"`
}

// ImageInfo identifies the analyzed upload.
type ImageInfo struct {
	Filename   string  `json:"filename"`
	Resolution string  `json:"resolution"`
	FileSizeMB float64 `json:"file_size_mb"`
}

// DetectionSummary aggregates detector confidence over one frame. The
// confidence fields are zero when nothing was detected, and rounded to
// three decimals otherwise.
type DetectionSummary struct {
	TotalBlueberries int     `json:"total_blueberries"`
	ConfidenceAvg    float64 `json:"detection_confidence_avg"`
	ConfidenceMin    float64 `json:"detection_confidence_min"`
	ConfidenceMax    float64 `json:"detection_confidence_max"`
}

// TechnicalDetails records how the analysis was produced.
type TechnicalDetails struct {
	ModelBackend        string  `json:"model_backend"`
	ModelName           string  `json:"model_name"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	AnalysisMethod      string  `json:"analysis_method"`
}

// Build assembles the report for one analysis from its already-computed
// pieces. It performs no analysis of its own.
func Build(info ImageInfo, detections []detection.Detection, dist maturity.Distribution, rec maturity.Recommendation, model detection.ModelInfo) Report {
	return Report{
		Timestamp:        time.Now(),
		ImageInfo:        info,
		DetectionSummary: summarize(detections),
		MaturityAnalysis: dist,
		Recommendations:  rec,
		TechnicalDetails: TechnicalDetails{
			ModelBackend:        model.Backend,
			ModelName:           model.Model,
			ConfidenceThreshold: model.ConfidenceThreshold,
			AnalysisMethod:      analysisMethod(model),
		},
	}
}

// summarize reduces the detection list to confidence statistics.
func summarize(detections []detection.Detection) DetectionSummary {
	s := DetectionSummary{TotalBlueberries: len(detections)}
	if len(detections) == 0 {
		return s
	}

	sum := 0.0
	min := detections[0].Confidence
	max := detections[0].Confidence
	for _, d := range detections {
		sum += d.Confidence
		if d.Confidence < min {
			min = d.Confidence
		}
		if d.Confidence > max {
			max = d.Confidence
		}
	}
	s.ConfidenceAvg = round3(sum / float64(len(detections)))
	s.ConfidenceMin = round3(min)
	s.ConfidenceMax = round3(max)
	return s
}

// analysisMethod names the detection chain for the technical details block.
func analysisMethod(model detection.ModelInfo) string {
	if model.Available {
		return "model detection + HSV maturity heuristics"
	}
	return "HSV segmentation + circle fallback"
}

// BatchSummary condenses several per-image reports into one overview.
type BatchSummary struct {
	TotalImages  int      `json:"total_images_analyzed"`
	AverageScore float64  `json:"average_maturity_score"`
	Harvest      []string `json:"harvest_recommendations"`
}

// Summarize builds the overview for a batch of reports. The harvest list
// carries each distinct recommendation once, in first-seen order, so a
// uniform batch reads as a single instruction.
func Summarize(reports []Report) BatchSummary {
	s := BatchSummary{
		TotalImages: len(reports),
		Harvest:     []string{},
	}
	if len(reports) == 0 {
		return s
	}

	sum := 0.0
	seen := make(map[string]struct{})
	for _, r := range reports {
		sum += r.MaturityAnalysis.Score
		rec := r.Recommendations.Harvest
		if rec == "" {
			continue
		}
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		s.Harvest = append(s.Harvest, rec)
	}
	s.AverageScore = round1(sum / float64(len(reports)))
	return s
}

// round3 rounds to three decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
