// ingest-server is the HTTP API for chat-export ingestion.
//
// Endpoints:
//   - POST /api/uploads                      - Submit an export for processing
//   - POST /api/uploads/validate             - Pre-flight export format check
//   - GET  /api/uploads/{uploadID}/progress  - Poll processing progress
//   - GET  /health                           - Health check
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatrecall/chatrecall/pkg/ingestconfig"
	"github.com/chatrecall/chatrecall/pkg/langdetect"
	"github.com/chatrecall/chatrecall/pkg/pipeline"
	"github.com/chatrecall/chatrecall/pkg/sessionstore"
	"github.com/chatrecall/chatrecall/pkg/vectordb"
	"github.com/chatrecall/chatrecall/pkg/vectorstore"
)

var (
	addr    = flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath  = flag.String("db", "", "Path to SQLite database (overrides config)")
	cfgPath = flag.String("config", "", "Path to chatrecall.yaml (auto-detected if not specified)")
	debug   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := loadConfig()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.SQLite = *dbPath
	}

	sessions, err := sessionstore.New(cfg.Database.SQLite)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.SQLite).Msg("Failed to open session database")
	}
	defer sessions.Close()
	log.Info().Str("path", cfg.Database.SQLite).Msg("Connected to SQLite")

	embedder := vectordb.NewEmbeddingClient(vectordb.EmbeddingConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	})

	ctx := context.Background()
	writer, err := vectorstore.NewWriter(ctx, cfg, cfg.Embedding.Dimension)
	if err != nil {
		log.Fatal().Err(err).Str("address", cfg.Milvus.Address).Msg("Failed to connect to Milvus")
	}
	defer writer.Close()
	log.Info().Str("address", cfg.Milvus.Address).Msg("Connected to Milvus")

	detector := langdetect.New(langdetect.Config{
		BaseURL: cfg.Language.BaseURL,
		Model:   cfg.Language.Model,
	})

	tracker := pipeline.NewTracker()
	runner, err := pipeline.NewRunner(cfg, tracker, embedder, writer, detector, sessions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pipeline runner")
	}
	defer runner.Close()

	h := &handlers{
		runner:   runner,
		tracker:  tracker,
		embedder: embedder,
		sessions: sessions,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/uploads", h.createUpload)
	r.Post("/api/uploads/validate", h.validateUpload)
	r.Get("/api/uploads/{uploadID}/progress", h.getProgress)
	r.Get("/health", h.health)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting ingest server")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Server stopped")
}

func loadConfig() *ingestconfig.Config {
	if *cfgPath != "" {
		cfg, err := ingestconfig.Load(*cfgPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *cfgPath).Msg("Failed to load configuration")
		}
		return cfg
	}
	return ingestconfig.LoadOrDefault(".")
}

// requestLogger logs HTTP requests through zerolog
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
