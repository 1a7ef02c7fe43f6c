package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
	"unicode/utf8"

	"github.com/pgvector/pgvector-go"
	"github.com/yemaney/filevector/internal/embeddings"
	"github.com/yemaney/filevector/internal/models"
	"github.com/yemaney/filevector/internal/repositories"
	"golang.org/x/sync/errgroup"
)

const dequeueTimeout = 5 * time.Second

// ErrUnprocessable marks jobs that will fail the same way on every attempt;
// they are acked and dropped instead of requeued.
var ErrUnprocessable = errors.New("unprocessable job")

// ObjectStore is the read-side of the object store the worker needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
}

type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

type MetadataStore interface {
	Create(ctx context.Context, meta *models.FileMetadata) error
}

type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*repositories.Delivery, error)
	Ack(ctx context.Context, d *repositories.Delivery) error
	Requeue(ctx context.Context, d *repositories.Delivery) error
}

// Worker consumes file-processing jobs and writes embedding metadata rows.
// Multiple workers (goroutines or whole processes) may run against the same
// queue; they coordinate only through the queue's delivery guarantees.
type Worker struct {
	queue    Queue
	store    ObjectStore
	embedder Embedder
	metadata MetadataStore
}

func New(queue Queue, store ObjectStore, embedder Embedder, metadata MetadataStore) *Worker {
	return &Worker{
		queue:    queue,
		store:    store,
		embedder: embedder,
		metadata: metadata,
	}
}

// Run blocks consuming jobs with the given number of competing consumers
// until the context is cancelled.
func (w *Worker) Run(ctx context.Context, concurrency int) error {
	log.Printf("Starting %d workers on queue", concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		id := i
		g.Go(func() error {
			return w.consume(ctx, id)
		})
	}
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, workerID int) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		delivery, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, repositories.ErrNoJob) || ctx.Err() != nil {
				continue
			}
			log.Printf("[worker-%d] dequeue error: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}

		w.handle(ctx, delivery, workerID)
	}
}

// handle runs one delivery through the pipeline and settles it with the
// queue: ack on success, ack-and-drop on permanent failures, requeue on
// anything redelivery might fix.
func (w *Worker) handle(ctx context.Context, delivery *repositories.Delivery, workerID int) {
	job := delivery.Job
	err := w.process(ctx, job)
	switch {
	case err == nil:
		if ackErr := w.queue.Ack(ctx, delivery); ackErr != nil {
			log.Printf("[worker-%d] ack failed for job %s: %v", workerID, job.ID, ackErr)
		} else {
			log.Printf("[worker-%d] processed %s (user %d, file %s)", workerID, job.ID, job.UserID, job.Filename)
		}

	case errors.Is(err, ErrUnprocessable) || errors.Is(err, embeddings.ErrInvalidResponse):
		// Redelivery cannot fix these; drop after logging
		log.Printf("[worker-%d] dropping job %s (user %d, file %s): %v", workerID, job.ID, job.UserID, job.Filename, err)
		if ackErr := w.queue.Ack(ctx, delivery); ackErr != nil {
			log.Printf("[worker-%d] ack failed for job %s: %v", workerID, job.ID, ackErr)
		}

	default:
		// Requeue and let the queue's redelivery be the retry mechanism
		log.Printf("[worker-%d] job %s failed, requeueing (user %d, file %s): %v", workerID, job.ID, job.UserID, job.Filename, err)
		if nackErr := w.queue.Requeue(ctx, delivery); nackErr != nil {
			log.Printf("[worker-%d] requeue failed for job %s: %v", workerID, job.ID, nackErr)
		}
	}
}

// process runs the full pipeline for one job: fetch bytes, embed, persist.
// A metadata row is only written after the embedding succeeds, so a failure
// anywhere leaves nothing behind and the job is safe to re-run.
func (w *Worker) process(ctx context.Context, job repositories.Job) error {
	if job.ContentType != "text/plain" {
		return fmt.Errorf("%w: unsupported content type %s", ErrUnprocessable, job.ContentType)
	}

	key := repositories.ObjectKey(job.UserID, job.Filename)

	body, err := w.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", key, err)
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}

	if !utf8.Valid(content) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrUnprocessable, key)
	}

	vector, err := w.embedder.Generate(ctx, string(content))
	if err != nil {
		return fmt.Errorf("embedding %s: %w", key, err)
	}

	// Size comes from the store's own bookkeeping, not the buffer just read
	size, err := w.store.Stat(ctx, key)
	if err != nil {
		return fmt.Errorf("stating %s: %w", key, err)
	}

	meta := &models.FileMetadata{
		UserID:      job.UserID,
		Filename:    job.Filename,
		ContentType: job.ContentType,
		Size:        size,
		StoragePath: key,
		Embedding:   pgvector.NewVector(vector),
	}
	if err := w.metadata.Create(ctx, meta); err != nil {
		return fmt.Errorf("persisting metadata for %s: %w", key, err)
	}

	return nil
}
