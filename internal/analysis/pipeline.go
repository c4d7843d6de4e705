package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/models"
)

// Progress/terminal events published while a video is analyzed. The browser
// surfaces them as toasts.
const (
	EventAnalysisStarted    = "analysis_started"
	EventFramesSampling     = "frames_sampling"
	EventDeepfakeScoring    = "deepfake_scoring"
	EventTranscriptExtract  = "transcript_extracting"
	EventSentimentAnalyzing = "sentiment_analyzing"
	EventAnalysisCompleted  = "analysis_completed"
	EventAnalysisFailed     = "analysis_failed"
)

// FrameSource samples representative frames from a video resource.
type FrameSource interface {
	Sample(ctx context.Context, videoURL string, count int) []Frame
}

// ReportStore persists verification reports. Insert-only.
type ReportStore interface {
	Insert(ctx context.Context, report *models.VerificationReport) error
}

// UploadStore transitions upload status records.
type UploadStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Notifier delivers user-visible progress and failure events. Best effort;
// the pipeline never fails because a notification could not be delivered.
// Implementations must be safe for concurrent use: the pipeline publishes
// from both analysis branches at once.
type Notifier interface {
	Publish(ctx context.Context, userID, videoID uuid.UUID, event, message string) error
}

// URLResolver maps a storage path to a fetchable public URL.
type URLResolver interface {
	PublicObjectURL(key string) string
}

// Pipeline runs the verification sequence for one uploaded video and
// persists the resulting report. Each video is processed by exactly one run;
// a run either persists a report and marks the upload completed, or persists
// nothing and marks it failed. There is no partial state visible to readers.
type Pipeline struct {
	frames     FrameSource
	scorer     *DeepfakeScorer
	transcript TranscriptSource
	sentiment  *SentimentAnalyzer
	reports    ReportStore
	uploads    UploadStore
	notifier   Notifier
	urls       URLResolver
	modelsUsed []string

	frameCount    int
	keyFrameLimit int
	logger        *zap.Logger
}

// PipelineConfig wires the orchestrator.
type PipelineConfig struct {
	Frames        FrameSource
	Scorer        *DeepfakeScorer
	Transcript    TranscriptSource
	Sentiment     *SentimentAnalyzer
	Reports       ReportStore
	Uploads       UploadStore
	Notifier      Notifier
	URLs          URLResolver
	ModelsUsed    []string
	FrameCount    int
	KeyFrameLimit int
	Logger        *zap.Logger
}

// NewPipeline creates a pipeline orchestrator.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.FrameCount <= 0 {
		cfg.FrameCount = 5
	}
	if cfg.KeyFrameLimit <= 0 {
		cfg.KeyFrameLimit = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{
		frames:        cfg.Frames,
		scorer:        cfg.Scorer,
		transcript:    cfg.Transcript,
		sentiment:     cfg.Sentiment,
		reports:       cfg.Reports,
		uploads:       cfg.Uploads,
		notifier:      cfg.Notifier,
		urls:          cfg.URLs,
		modelsUsed:    cfg.ModelsUsed,
		frameCount:    cfg.FrameCount,
		keyFrameLimit: cfg.KeyFrameLimit,
		logger:        cfg.Logger,
	}
}

// Process runs the full verification sequence for one video. Inference and
// sampling failures are absorbed as graceful degradation by the components
// themselves; only persistence failures and unexpected panics reach this
// boundary, where they mark the upload failed and emit exactly one failure
// notification.
func (p *Pipeline) Process(ctx context.Context, videoID uuid.UUID, storagePath string, userID uuid.UUID) (report *models.VerificationReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			p.fail(ctx, videoID, userID, err)
			report = nil
		}
	}()

	log := p.logger.With(zap.String("video_id", videoID.String()), zap.String("user_id", userID.String()))
	log.Info("starting video analysis", zap.String("storage_path", storagePath))
	p.notify(ctx, userID, videoID, EventAnalysisStarted, "Starting AI analysis...")

	videoURL := p.urls.PublicObjectURL(storagePath)

	// The visual path and the speech path are independent; run them
	// concurrently and join before the heuristics and the aggregate score,
	// which need both.
	var (
		frames         []Frame
		likelihood     int
		visualDegraded bool

		transcript        string
		audioDegraded     bool
		sentiment         models.SentimentDistribution
		sentimentDegraded bool
	)

	var wg sync.WaitGroup
	var visualErr, speechErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverTo(&visualErr)
		p.notify(ctx, userID, videoID, EventFramesSampling, "Extracting video frames...")
		frames = p.frames.Sample(ctx, videoURL, p.frameCount)
		p.notify(ctx, userID, videoID, EventDeepfakeScoring, "Analyzing for deepfakes...")
		likelihood, visualDegraded = p.scorer.Score(ctx, frames)
	}()
	go func() {
		defer wg.Done()
		defer recoverTo(&speechErr)
		p.notify(ctx, userID, videoID, EventTranscriptExtract, "Extracting speech content...")
		transcript, audioDegraded = p.transcript.Extract(ctx, videoURL)
		p.notify(ctx, userID, videoID, EventSentimentAnalyzing, "Analyzing sentiment...")
		sentiment, sentimentDegraded = p.sentiment.Analyze(ctx, transcript)
	}()
	wg.Wait()
	if visualErr != nil || speechErr != nil {
		err = fmt.Errorf("analysis branch failed: visual=%v speech=%v", visualErr, speechErr)
		p.fail(ctx, videoID, userID, err)
		return nil, err
	}

	indicators := DetectTamperIndicators(likelihood, sentiment, Evidence{
		FramesRequested: p.frameCount,
		FramesSampled:   len(frames),
		AudioDegraded:   audioDegraded,
	})
	score := AggregateScore(likelihood, sentiment, len(indicators))

	report = &models.VerificationReport{
		VideoID:            videoID,
		UserID:             userID,
		AuthenticityScore:  score,
		DeepfakeLikelihood: likelihood,
		Transcript:         transcript,
		Sentiment:          sentiment,
		TamperIndicators:   indicators,
		KeyFrames:          keyFrames(frames, p.keyFrameLimit),
		Metadata: models.ReportMetadata{
			ProcessingDate: time.Now().UTC(),
			ModelsUsed:     p.modelsUsed,
			FramesSampled:  len(frames),
			Degraded:       visualDegraded || audioDegraded || sentimentDegraded,
		},
	}

	if err := p.reports.Insert(ctx, report); err != nil {
		err = fmt.Errorf("insert report: %w", err)
		p.fail(ctx, videoID, userID, err)
		return nil, err
	}
	if err := p.uploads.UpdateStatus(ctx, videoID, models.UploadStatusCompleted); err != nil {
		err = fmt.Errorf("mark upload completed: %w", err)
		p.fail(ctx, videoID, userID, err)
		return nil, err
	}

	log.Info("video analysis completed",
		zap.Int("authenticity_score", score),
		zap.Int("deepfake_likelihood", likelihood),
		zap.Int("tamper_indicators", len(indicators)),
		zap.Int("frames_sampled", len(frames)))
	p.notify(ctx, userID, videoID, EventAnalysisCompleted, "Video analysis complete!")
	return report, nil
}

// fail marks the upload failed (best effort) and emits the single
// user-visible failure notification for this run.
func (p *Pipeline) fail(ctx context.Context, videoID, userID uuid.UUID, cause error) {
	p.logger.Error("video analysis failed",
		zap.String("video_id", videoID.String()),
		zap.Error(cause))
	if err := p.uploads.UpdateStatus(ctx, videoID, models.UploadStatusFailed); err != nil {
		p.logger.Error("mark upload failed errored",
			zap.String("video_id", videoID.String()),
			zap.Error(err))
	}
	p.notify(ctx, userID, videoID, EventAnalysisFailed, "Failed to process video")
}

func (p *Pipeline) notify(ctx context.Context, userID, videoID uuid.UUID, event, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, userID, videoID, event, message); err != nil {
		p.logger.Debug("notification publish failed", zap.String("event", event), zap.Error(err))
	}
}

func recoverTo(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

func keyFrames(frames []Frame, limit int) []string {
	if len(frames) > limit {
		frames = frames[:limit]
	}
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.DataURL)
	}
	return out
}
