package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Inference InferenceConfig
	OpenAI    OpenAIConfig
	Pipeline  PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/veriscan?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds settings for validating bearer tokens issued by the auth
// frontend. The API only verifies identity; it never issues credentials.
type JWTConfig struct {
	Secret string
}

// AWSConfig holds AWS credentials and the S3 bucket for uploaded videos.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	VideosBucket         string
	PresignExpireMinutes int
}

// InferenceConfig holds the remote model endpoints used by the inference
// gateway. The gateway POSTs {"inputs": payload} with a bearer token to
// BaseURL/{model}. TimeoutSec bounds each call before the fixed fallback
// result is used.
type InferenceConfig struct {
	BaseURL        string
	APIKey         string
	DeepfakeModel  string
	SpeechModel    string
	SentimentModel string
	TimeoutSec     int
}

// OpenAIConfig enables the optional Whisper transcription path when an
// OpenAI-compatible endpoint is configured. Empty APIKey disables it.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// PipelineConfig holds analysis pipeline tunables.
type PipelineConfig struct {
	FrameSamples    int    // frames requested per video
	KeyFrameLimit   int    // sampled frames persisted on the report for display
	MaxUploadSizeMB int
	FFmpegPath      string
	FFprobePath     string
	WorkDir         string // scratch dir for extracted audio; empty = os.TempDir()
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Origins returns the parsed CORS allow-list.
func (s ServerConfig) Origins() []string {
	return splitTrim(s.CORSAllowedOrigins, ",")
}

// MaxUploadBytes returns the upload size ceiling in bytes.
func (p PipelineConfig) MaxUploadBytes() int64 {
	return int64(p.MaxUploadSizeMB) << 20
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/veriscan?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "veriscan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			VideosBucket:         getEnv("AWS_S3_VIDEOS_BUCKET", "veriscan-videos-bucket"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Inference: InferenceConfig{
			BaseURL:        getEnv("INFERENCE_BASE_URL", "https://api-inference.huggingface.co/models"),
			APIKey:         getEnv("INFERENCE_API_KEY", ""),
			DeepfakeModel:  getEnv("INFERENCE_DEEPFAKE_MODEL", "umm-maybe/AI-image-detector"),
			SpeechModel:    getEnv("INFERENCE_SPEECH_MODEL", "openai/whisper-base"),
			SentimentModel: getEnv("INFERENCE_SENTIMENT_MODEL", "distilbert-base-uncased-finetuned-sst-2-english"),
			TimeoutSec:     getEnvInt("INFERENCE_TIMEOUT_SEC", 15),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		Pipeline: PipelineConfig{
			FrameSamples:    getEnvInt("PIPELINE_FRAME_SAMPLES", 5),
			KeyFrameLimit:   getEnvInt("PIPELINE_KEY_FRAME_LIMIT", 3),
			MaxUploadSizeMB: getEnvInt("PIPELINE_MAX_UPLOAD_SIZE_MB", 100),
			FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
			WorkDir:         getEnv("PIPELINE_WORK_DIR", ""),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
