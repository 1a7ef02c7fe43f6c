package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yemaney/filevector/internal/config"
)

const (
	queueKey      = "files"
	processingKey = "files:processing"
)

// ErrNoJob is returned by Dequeue when the blocking wait times out without a
// job arriving.
var ErrNoJob = errors.New("no job available")

// Job describes one uploaded file awaiting embedding.
type Job struct {
	ID          string `json:"id"`
	UserID      uint   `json:"user_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func NewJob(userID uint, filename, contentType string) Job {
	return Job{
		ID:          uuid.New().String(),
		UserID:      userID,
		Filename:    filename,
		ContentType: contentType,
	}
}

// Delivery is one dequeued job plus the raw payload needed to ack it.
type Delivery struct {
	Job Job
	raw string
}

// JobQueue is a redis-list task queue with at-least-once semantics. Enqueue
// pushes onto the main list; consumers atomically move a job onto a
// processing list and remove it only after acking, so a consumer crash leaves
// the job recoverable rather than lost.
type JobQueue struct {
	rdb *redis.Client
}

func NewJobQueue(ctx context.Context, cfg config.RedisConfig) (*JobQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Println("Successfully connected to redis")
	return &JobQueue{rdb: rdb}, nil
}

// NewJobQueueFromClient wraps an existing client; used by tests.
func NewJobQueueFromClient(rdb *redis.Client) *JobQueue {
	return &JobQueue{rdb: rdb}
}

func (q *JobQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job, moving it onto the
// processing list. Returns ErrNoJob on timeout. A payload that cannot be
// decoded is dropped from the processing list and reported as an error, since
// requeueing it would loop forever.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	raw, err := q.rdb.BLMove(ctx, queueKey, processingKey, "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.rdb.LRem(ctx, processingKey, 1, raw)
		return nil, fmt.Errorf("discarding malformed job payload: %w", err)
	}

	return &Delivery{Job: job, raw: raw}, nil
}

// Ack removes a processed job from the processing list.
func (q *JobQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.rdb.LRem(ctx, processingKey, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", d.Job.ID, err)
	}
	return nil
}

// Requeue puts a failed job back on the main queue for redelivery.
func (q *JobQueue) Requeue(ctx context.Context, d *Delivery) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, d.raw)
	pipe.RPush(ctx, queueKey, d.raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", d.Job.ID, err)
	}
	return nil
}

func (q *JobQueue) Close() error {
	return q.rdb.Close()
}
