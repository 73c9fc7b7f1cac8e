package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/fernwood/berrysight/internal/analysis"
	"github.com/fernwood/berrysight/internal/config"
	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/history"
)

// Server routes HTTP traffic to the analyzer and the history store.
type Server struct {
	cfg       *config.Config
	analyzer  *analysis.Analyzer
	store     history.Store
	primary   detection.Primary
	storeName string
	version   string
	http      *http.Server
}

// healthChecker is implemented by primary detectors that can probe their
// backing service.
type healthChecker interface {
	Healthy(ctx context.Context) error
}

// New assembles the server. primary may be nil when the pipeline runs on
// color heuristics alone; storeName labels the history backend in health
// output.
func New(cfg *config.Config, analyzer *analysis.Analyzer, store history.Store, primary detection.Primary, storeName, version string) *Server {
	s := &Server{
		cfg:       cfg,
		analyzer:  analyzer,
		store:     store,
		primary:   primary,
		storeName: storeName,
		version:   version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /batch_upload", s.handleBatchUpload)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("DELETE /history/{id}", s.handleHistoryDelete)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("GET /export/{id}", s.handleExportRecord)
	mux.HandleFunc("GET /results/{name}", s.handleResults)
	mux.HandleFunc("GET /uploads/{name}", s.serveFrom(cfg.UploadDir))
	mux.HandleFunc("GET /processed/{name}", s.serveFrom(cfg.ProcessedDir))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/model_info", s.handleModelInfo)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           withLogging(withCORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the full middleware-wrapped handler, primarily for
// tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	log.Printf("listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// withCORS allows browser frontends on other origins to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging writes one line per request: method, path, status, elapsed.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
