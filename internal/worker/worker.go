package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/models"
	"github.com/veriscan/backend/pkg/queue"
)

// VideoProcessor runs the verification pipeline for one video.
type VideoProcessor interface {
	Process(ctx context.Context, videoID uuid.UUID, storagePath string, userID uuid.UUID) (*models.VerificationReport, error)
}

// dequeueBackoff paces the loop after a Redis error so a dead broker does
// not spin the worker hot.
const dequeueBackoff = 2 * time.Second

// AnalysisWorker consumes video analysis jobs and drives the pipeline. Each
// job is attempted once; the pipeline itself marks the upload failed on
// error, so failed jobs are not retried or dead-lettered.
type AnalysisWorker struct {
	queue     *queue.Queue
	processor VideoProcessor
	logger    *zap.Logger
}

// NewAnalysisWorker creates the analysis job consumer.
func NewAnalysisWorker(q *queue.Queue, processor VideoProcessor, logger *zap.Logger) *AnalysisWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisWorker{queue: q, processor: processor, logger: logger}
}

// Handle executes one job. Undispatchable jobs (unknown type, bad payload)
// go to the DLQ; pipeline errors are terminal for the video and only logged.
func (w *AnalysisWorker) Handle(ctx context.Context, job *queue.Job) {
	if job.Type != queue.JobTypeVideoAnalysis {
		w.logger.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.queue.DeadLetter(ctx, job); err != nil {
			w.logger.Error("dead-letter failed", zap.Error(err))
		}
		return
	}
	var payload queue.VideoAnalysisPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		w.logger.Warn("undecodable job payload", zap.String("job_id", job.ID), zap.Error(err))
		if dlErr := w.queue.DeadLetter(ctx, job); dlErr != nil {
			w.logger.Error("dead-letter failed", zap.Error(dlErr))
		}
		return
	}

	w.logger.Info("processing video analysis job",
		zap.String("job_id", job.ID),
		zap.String("video_id", payload.VideoID.String()))
	if _, err := w.processor.Process(ctx, payload.VideoID, payload.StoragePath, payload.UserID); err != nil {
		w.logger.Error("video analysis job failed",
			zap.String("job_id", job.ID),
			zap.String("video_id", payload.VideoID.String()),
			zap.Error(err))
	}
}

// Run starts the consume loop until ctx is cancelled.
func (w *AnalysisWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("analysis worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("analysis worker stopping")
				return
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(dequeueBackoff)
			continue
		}
		if job == nil {
			continue
		}
		w.Handle(ctx, job)
	}
}
