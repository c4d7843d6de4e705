// Package main runs the VeriScan API server: upload registration, analysis
// triggers, report reads and the notification WebSocket.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veriscan/backend/config"
	"github.com/veriscan/backend/internal/auth"
	"github.com/veriscan/backend/internal/middleware"
	"github.com/veriscan/backend/internal/notify"
	"github.com/veriscan/backend/internal/reports"
	"github.com/veriscan/backend/internal/uploads"
	"github.com/veriscan/backend/pkg/database"
	"github.com/veriscan/backend/pkg/queue"
	"github.com/veriscan/backend/pkg/redis"
	"github.com/veriscan/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			VideosBucket:         cfg.AWS.VideosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	uploadRepo := uploads.NewRepository(pool)
	uploadHandler := uploads.NewHandler(uploadRepo, s3Client, jobQueue, cfg.Pipeline.MaxUploadBytes(), logger)

	reportRepo := reports.NewRepository(pool)
	reportHandler := reports.NewHandler(reportRepo, logger)

	publisher := notify.NewPublisher(rdb.Client, logger)
	hub := notify.NewHub(publisher, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.Origins()))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/uploads", uploadHandler.Create)
		api.GET("/uploads", uploadHandler.List)
		api.GET("/uploads/:id", uploadHandler.Get)
		api.POST("/uploads/:id/file", uploadHandler.UploadFile)
		api.POST("/uploads/:id/complete", uploadHandler.Complete)
		api.DELETE("/uploads/:id", uploadHandler.Delete)

		api.GET("/reports", reportHandler.List)
		api.GET("/reports/video/:id", reportHandler.GetByVideo)
		api.GET("/dashboard", reportHandler.Dashboard)
	}

	// WebSocket (token in query; no Authorization header on browser upgrades)
	router.GET("/ws/notifications", middleware.JWT(jwtService), hub.ServeWS())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
