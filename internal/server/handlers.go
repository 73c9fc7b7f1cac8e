package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fernwood/berrysight/internal/analysis"
	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/history"
	"github.com/fernwood/berrysight/internal/imaging"
)

// uploadResponse wraps a single analysis result.
type uploadResponse struct {
	Success  bool             `json:"success"`
	Filename string           `json:"filename"`
	Results  *analysis.Result `json:"results"`
}

// handleUpload analyzes one uploaded image.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes()); err != nil {
		respondError(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}

	file, header, err := formImage(r)
	if err != nil {
		respondError(w, "no image uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !imaging.AllowedExtension(header.Filename, s.cfg.AllowedExtensions) {
		respondError(w, "file type not allowed", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "failed to read upload", http.StatusInternalServerError)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), header.Filename, data)
	if errors.Is(err, detection.ErrInvalidImage) {
		respondError(w, "invalid image file", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("analyze %s: %v", header.Filename, err)
		respondError(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, uploadResponse{Success: true, Filename: result.Filename, Results: result}, http.StatusOK)
}

// batchResponse wraps the outcome of one batch upload.
type batchResponse struct {
	Success bool `json:"success"`
	*analysis.BatchResult
}

// handleBatchUpload analyzes every file of a multi-image upload. Files
// with disallowed extensions are reported alongside analysis failures
// rather than rejecting the batch.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes()); err != nil {
		respondError(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}

	headers := formImages(r)
	if len(headers) == 0 {
		respondError(w, "no images uploaded", http.StatusBadRequest)
		return
	}

	var files []analysis.File
	var rejected []analysis.BatchError
	for _, h := range headers {
		if !imaging.AllowedExtension(h.Filename, s.cfg.AllowedExtensions) {
			rejected = append(rejected, analysis.BatchError{Filename: h.Filename, Error: "file type not allowed"})
			continue
		}
		data, err := readFormFile(h)
		if err != nil {
			rejected = append(rejected, analysis.BatchError{Filename: h.Filename, Error: "failed to read upload"})
			continue
		}
		files = append(files, analysis.File{Name: h.Filename, Data: data})
	}

	batch := s.analyzer.AnalyzeBatch(r.Context(), files)
	batch.Errors = append(rejected, batch.Errors...)

	respondJSON(w, batchResponse{Success: true, BatchResult: batch}, http.StatusOK)
}

// historyResponse is one page of history records.
type historyResponse struct {
	Success bool             `json:"success"`
	Data    []history.Record `json:"data"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Total   int              `json:"total"`
}

// handleHistory serves paged history records, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)

	result, err := s.store.List(r.Context(), page, perPage)
	if err != nil {
		log.Printf("list history: %v", err)
		respondError(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	respondJSON(w, historyResponse{
		Success: true,
		Data:    result.Records,
		Page:    result.Page,
		PerPage: result.PerPage,
		Total:   result.Total,
	}, http.StatusOK)
}

// handleHistoryDelete removes one record and the files it references.
func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, "invalid record id", http.StatusBadRequest)
		return
	}

	rec, err := s.store.Delete(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		respondError(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("delete history %d: %v", id, err)
		respondError(w, "failed to delete record", http.StatusInternalServerError)
		return
	}

	removeStored(s.cfg.UploadDir, rec.Filename)
	removeStored(s.cfg.ProcessedDir, rec.ProcessedFilename)

	respondJSON(w, map[string]any{"success": true, "message": "record deleted"}, http.StatusOK)
}

// handleExport downloads the whole history as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := history.ExportCSV(r.Context(), s.store, &buf); err != nil {
		log.Printf("export history: %v", err)
		respondError(w, "failed to export history", http.StatusInternalServerError)
		return
	}
	serveCSV(w, fmt.Sprintf("blueberry_analysis_%s.csv", time.Now().Format("20060102_150405")), buf.Bytes())
}

// handleExportRecord downloads one record as CSV.
func (s *Server) handleExportRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, "invalid record id", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	err = history.ExportRecordCSV(r.Context(), s.store, id, &buf)
	if errors.Is(err, history.ErrNotFound) {
		respondError(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("export record %d: %v", id, err)
		respondError(w, "failed to export record", http.StatusInternalServerError)
		return
	}
	serveCSV(w, fmt.Sprintf("blueberry_analysis_%d_%s.csv", id, time.Now().Format("20060102_150405")), buf.Bytes())
}

// handleResults re-runs the analysis on a stored upload without recording
// a new history row.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	result, err := s.analyzer.AnalyzeStored(r.Context(), name)
	if os.IsNotExist(err) {
		respondError(w, "file not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, detection.ErrInvalidImage) {
		respondError(w, "invalid image file", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("reanalyze %s: %v", name, err)
		respondError(w, "analysis failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, result, http.StatusOK)
}

// serveFrom serves single files out of dir by their base name.
func (s *Server) serveFrom(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.PathValue("name"))
		if name == "." || name == ".." || name == "/" {
			respondError(w, "not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, name))
	}
}

// healthResponse reports service liveness plus backend states.
type healthResponse struct {
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version"`
	Store     string              `json:"store"`
	Model     detection.ModelInfo `json:"model"`
}

// handleHealth reports liveness. The primary detector is probed live when
// it supports probing; an unreachable model keeps the service healthy,
// since analysis degrades to color heuristics.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if hc, ok := s.primary.(healthChecker); ok {
		if err := hc.Healthy(r.Context()); err != nil {
			log.Printf("model health: %v", err)
		}
	}

	respondJSON(w, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Store:     s.storeName,
		Model:     s.analyzer.ModelInfo(),
	}, http.StatusOK)
}

// handleModelInfo describes the configured primary detector.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.analyzer.ModelInfo(), http.StatusOK)
}

// statsResponse merges history statistics with model state.
type statsResponse struct {
	history.Stats
	ModelStatus string    `json:"model_status"`
	Timestamp   time.Time `json:"timestamp"`
}

// handleStats serves aggregate history statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		log.Printf("stats: %v", err)
		respondError(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, statsResponse{
		Stats:       stats,
		ModelStatus: modelStatus(s.analyzer.ModelInfo()),
		Timestamp:   time.Now(),
	}, http.StatusOK)
}

// handleRoot serves the service descriptor.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"service": "berrysight",
		"version": s.version,
		"endpoints": []string{
			"POST /upload",
			"POST /batch_upload",
			"GET /history",
			"DELETE /history/{id}",
			"GET /export",
			"GET /export/{id}",
			"GET /results/{name}",
			"GET /uploads/{name}",
			"GET /processed/{name}",
			"GET /api/health",
			"GET /api/model_info",
			"GET /api/stats",
		},
	}, http.StatusOK)
}

// modelStatus condenses ModelInfo for the stats endpoint.
func modelStatus(info detection.ModelInfo) string {
	switch {
	case info.Backend == "none":
		return "heuristics-only"
	case info.Available:
		return "active"
	default:
		return "unavailable"
	}
}

// formImage fetches the uploaded file from the "image" field, falling
// back to "file" for older clients.
func formImage(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("image")
	if err == nil {
		return file, header, nil
	}
	return r.FormFile("file")
}

// formImages collects batch upload headers from the "images" field,
// falling back to "files[]".
func formImages(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if headers := r.MultipartForm.File["images"]; len(headers) > 0 {
		return headers
	}
	return r.MultipartForm.File["files[]"]
}

// readFormFile reads one part of a multipart form into memory.
func readFormFile(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// removeStored deletes one stored file, tolerating records whose files
// are already gone.
func removeStored(dir, name string) {
	if name == "" {
		return
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove %s: %v", path, err)
	}
}

// serveCSV writes a CSV attachment response.
func serveCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("write csv response: %v", err)
	}
}

// queryInt reads an integer query parameter, returning fallback when the
// parameter is absent or malformed.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// respondJSON writes data as a JSON response.
func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// respondError writes an error message as JSON.
func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
