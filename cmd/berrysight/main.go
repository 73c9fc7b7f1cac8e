package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernwood/berrysight/internal/analysis"
	"github.com/fernwood/berrysight/internal/config"
	"github.com/fernwood/berrysight/internal/detection"
	"github.com/fernwood/berrysight/internal/history"
	"github.com/fernwood/berrysight/internal/model"
	"github.com/fernwood/berrysight/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	startupProbeTimeout = 5 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("berrysight %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	configPath := flag.String("config", "", "path to a JSON config file")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix("berrysight: ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printHelp() {
	fmt.Println("berrysight - blueberry ripeness analysis server")
	fmt.Println()
	fmt.Println("Usage: berrysight [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config <path>   Load settings from a JSON config file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (override the config file):")
	fmt.Println("  BERRYSIGHT_LISTEN_ADDR       HTTP listen address (default :8080)")
	fmt.Println("  BERRYSIGHT_DATABASE_URL      Postgres DSN; empty keeps history in memory")
	fmt.Println("  BERRYSIGHT_MODEL_BACKEND     none | remote | ollama")
	fmt.Println("  BERRYSIGHT_MODEL_URL         Remote inference service base URL")
	fmt.Println("  BERRYSIGHT_OLLAMA_HOST       Ollama server, e.g. http://localhost:11434")
	fmt.Println("  BERRYSIGHT_OLLAMA_MODEL      Vision model name, e.g. llava")
	fmt.Println("  BERRYSIGHT_UPLOAD_DIR        Where uploaded images are stored")
	fmt.Println("  BERRYSIGHT_PROCESSED_DIR     Where annotated images are stored")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeName, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Printf("History store: %s", storeName)

	primary := buildPrimary(cfg)
	if primary != nil {
		probeBackend(ctx, primary)
	} else {
		log.Printf("Model backend: none, running on HSV heuristics")
	}

	analyzer, err := analysis.New(detection.NewPipeline(primary), store, cfg.UploadDir, cfg.ProcessedDir)
	if err != nil {
		return err
	}

	srv := server.New(cfg, analyzer, store, primary, storeName, Version)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	log.Printf("berrysight %s listening on %s", Version, cfg.ListenAddr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks Postgres when a DSN is configured and falls back to the
// in-memory store otherwise, so the server always starts.
func openStore(ctx context.Context, cfg *config.Config) (history.Store, string, error) {
	if cfg.DatabaseURL == "" {
		return history.NewMemory(), "memory", nil
	}
	pg, err := history.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("open postgres: %w", err)
	}
	return pg, "postgres", nil
}

func buildPrimary(cfg *config.Config) detection.Primary {
	switch cfg.ModelBackend {
	case config.BackendRemote:
		return model.NewRemote(cfg.ModelURL, cfg.ModelName, cfg.ConfidenceThreshold, cfg.RequestTimeout())
	case config.BackendOllama:
		o, err := model.NewOllama(cfg.OllamaHost, cfg.OllamaModel, cfg.ConfidenceThreshold)
		if err != nil {
			log.Printf("Warning: ollama backend disabled: %v", err)
			return nil
		}
		return o
	default:
		return nil
	}
}

// probeBackend checks the configured model service once at startup. A dead
// backend is only a warning; the pipeline degrades to heuristics.
func probeBackend(ctx context.Context, primary detection.Primary) {
	probeCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancel()

	if hc, ok := primary.(interface{ Healthy(context.Context) error }); ok {
		if err := hc.Healthy(probeCtx); err != nil {
			log.Printf("Warning: model backend not available: %v", err)
		}
	}
	info := primary.Info()
	log.Printf("Model backend: %s (%s), available=%v", info.Backend, info.Model, info.Available)
}
