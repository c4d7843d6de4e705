// Package main runs the background analysis worker: it consumes video
// analysis jobs and drives the verification pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veriscan/backend/config"
	"github.com/veriscan/backend/internal/analysis"
	"github.com/veriscan/backend/internal/inference"
	"github.com/veriscan/backend/internal/notify"
	"github.com/veriscan/backend/internal/reports"
	"github.com/veriscan/backend/internal/uploads"
	"github.com/veriscan/backend/internal/worker"
	"github.com/veriscan/backend/pkg/database"
	"github.com/veriscan/backend/pkg/queue"
	"github.com/veriscan/backend/pkg/redis"
	"github.com/veriscan/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		VideosBucket:         cfg.AWS.VideosBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	gateway := inference.NewGateway(inference.Config{
		BaseURL:        cfg.Inference.BaseURL,
		APIKey:         cfg.Inference.APIKey,
		DeepfakeModel:  cfg.Inference.DeepfakeModel,
		SpeechModel:    cfg.Inference.SpeechModel,
		SentimentModel: cfg.Inference.SentimentModel,
		Timeout:        time.Duration(cfg.Inference.TimeoutSec) * time.Second,
	}, logger)

	var whisper inference.SpeechTranscriber
	if cfg.OpenAI.APIKey != "" {
		whisper = inference.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, logger)
	}

	ffmpeg := analysis.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath, nil)
	sampler := analysis.NewFrameSampler(ffmpeg, logger)
	scorer := analysis.NewDeepfakeScorer(gateway, logger)
	transcriber := analysis.NewTranscriptExtractor(gateway, whisper, ffmpeg, cfg.Pipeline.WorkDir, logger)
	sentiment := analysis.NewSentimentAnalyzer(gateway, logger)

	uploadRepo := uploads.NewRepository(pool)
	reportRepo := reports.NewRepository(pool)
	publisher := notify.NewPublisher(rdb.Client, logger)

	pipeline := analysis.NewPipeline(analysis.PipelineConfig{
		Frames:        sampler,
		Scorer:        scorer,
		Transcript:    transcriber,
		Sentiment:     sentiment,
		Reports:       reportRepo,
		Uploads:       uploadRepo,
		Notifier:      publisher,
		URLs:          s3Client,
		ModelsUsed:    gateway.Models(),
		FrameCount:    cfg.Pipeline.FrameSamples,
		KeyFrameLimit: cfg.Pipeline.KeyFrameLimit,
		Logger:        logger,
	})

	jobQueue := queue.NewQueue(rdb.Client, logger)
	analysisWorker := worker.NewAnalysisWorker(jobQueue, pipeline, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go analysisWorker.Run(workerCtx)
	logger.Info("analysis worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
