package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/yemaney/filevector/internal/api"
	"github.com/yemaney/filevector/internal/api/handlers"
	"github.com/yemaney/filevector/internal/config"
	"github.com/yemaney/filevector/internal/embeddings"
	"github.com/yemaney/filevector/internal/repositories"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := repositories.ConnectDatabase(cfg.DB_URL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}

	store, err := repositories.NewObjectStore(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("Object store setup failed: %v", err)
	}

	queue, err := repositories.NewJobQueue(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Queue setup failed: %v", err)
	}
	defer queue.Close()

	embedder := embeddings.NewClient(cfg.Embeddings)
	fileRepo := repositories.NewFileMetadataRepo(db)

	mux := api.SetupRouter(
		cfg,
		handlers.NewAuthHandler(db, cfg),
		handlers.NewFileHandler(store, queue),
		handlers.NewSearchHandler(fileRepo, embedder),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: mux,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting filevector API on port: %s", cfg.Port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on port %s: %v", cfg.Port, err)
	}
}
