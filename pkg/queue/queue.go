package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueAnalysis is the Redis list key for video analysis jobs.
	QueueAnalysis = "worker:analysis"
	// QueueDLQ receives jobs that could not be decoded or dispatched.
	// Failed pipeline runs are NOT retried or dead-lettered: the run itself
	// marks the upload failed, which is the terminal outcome for that video.
	QueueDLQ = "worker:dlq"
)

// JobType identifies the job kind.
type JobType string

// JobTypeVideoAnalysis runs the verification pipeline for one uploaded video.
const JobTypeVideoAnalysis JobType = "video_analysis"

// VideoAnalysisPayload is the payload for video analysis jobs. It mirrors the
// upload trigger contract: (videoId, storagePath, userId).
type VideoAnalysisPayload struct {
	VideoID     uuid.UUID `json:"video_id"`
	StoragePath string    `json:"storage_path"`
	UserID      uuid.UUID `json:"user_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueVideoAnalysis enqueues a video analysis job. Each video is enqueued
// exactly once, at upload completion.
func (q *Queue) EnqueueVideoAnalysis(ctx context.Context, payload VideoAnalysisPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeVideoAnalysis,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueAnalysis, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued video analysis job",
		zap.String("job_id", job.ID),
		zap.String("video_id", payload.VideoID.String()))
	return nil
}

// Dequeue blocks until a job is available or ctx is done. A nil job with nil
// error means nothing was dequeued (e.g. undecodable payload moved to DLQ).
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueAnalysis).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload, moving to DLQ", zap.Error(err))
		_ = q.client.RPush(ctx, QueueDLQ, result[1]).Err()
		return nil, nil
	}
	return &job, nil
}

// DeadLetter pushes a job that could not be dispatched (unknown type, bad
// payload) to the dead-letter list for inspection.
func (q *Queue) DeadLetter(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		return err
	}
	q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}
