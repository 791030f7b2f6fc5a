// Package main is the entry point for the Recipe Extractor API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CodeDanji/recipe-extractor/internal/config"
	"github.com/CodeDanji/recipe-extractor/internal/database"
	"github.com/CodeDanji/recipe-extractor/internal/handlers"
	"github.com/CodeDanji/recipe-extractor/internal/router"
	"github.com/CodeDanji/recipe-extractor/internal/services/audio"
	"github.com/CodeDanji/recipe-extractor/internal/services/pipeline"
	"github.com/CodeDanji/recipe-extractor/internal/services/progress"
	"github.com/CodeDanji/recipe-extractor/internal/services/recipe"
	"github.com/CodeDanji/recipe-extractor/internal/services/youtube"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Recipe Extractor API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, workers=%d, batch_cap=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.MaxBatchSize, cfg.GinMode)
	log.Printf("🔧 yt-dlp path: %s", cfg.YtDlpPath)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	resolver, err := youtube.NewResolver(cfg.YouTubeAPIKey)
	if err != nil {
		log.Fatalf("❌ Failed to create YouTube client: %v", err)
	}
	downloader := audio.NewDownloader(cfg.YtDlpPath, cfg.AudioDir)

	transcriber := audio.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.TranscriptLang)
	if transcriber.IsConfigured() {
		log.Printf("✅ Audio transcription enabled (Whisper API, language=%s)", cfg.TranscriptLang)
	} else {
		log.Println("⚠️  Audio transcription disabled (set OPENAI_API_KEY to enable) — description fallback only")
	}

	extractor := recipe.NewService(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	if extractor.IsConfigured() {
		log.Printf("✅ Recipe extraction enabled (OpenRouter, model=%s)", cfg.OpenRouterModel)
	} else {
		log.Println("⚠️  Recipe extraction disabled (set OPENROUTER_API_KEY to enable) — description fallback only")
	}

	// Step 4: Wire the Pipeline
	tracker := progress.NewTracker()
	pipe := pipeline.New(resolver, downloader, transcriber, extractor, db)
	runner := pipeline.NewRunner(pipe, tracker, cfg.WorkerCount)

	// Step 5: Setup HTTP Router
	h := handlers.NewHandler(db, resolver, runner, tracker, cfg.MaxBatchSize, cfg.WorkerCount)
	r := router.Setup(h, cfg.AllowedOrigins)

	// Step 6: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
