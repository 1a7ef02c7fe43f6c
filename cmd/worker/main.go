package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/yemaney/filevector/internal/config"
	"github.com/yemaney/filevector/internal/embeddings"
	"github.com/yemaney/filevector/internal/repositories"
	"github.com/yemaney/filevector/internal/worker"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	w := worker.New(queue, store, embedder, fileRepo)
	if err := w.Run(ctx, cfg.WorkerConcurrency); err != nil {
		log.Fatalf("Worker exited with error: %v", err)
	}

	log.Println("Worker shut down")
}
