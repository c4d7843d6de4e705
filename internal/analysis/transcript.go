package analysis

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/inference"
)

// TranscriptSource yields the speech text of a video. The boolean reports
// whether the text came from a degraded path (fallback or placeholder).
type TranscriptSource interface {
	Extract(ctx context.Context, videoURL string) (string, bool)
}

// TranscriptExtractor obtains the video's speech content. When an
// OpenAI-compatible Whisper endpoint is configured it extracts the audio
// channel with ffmpeg and transcribes the file; otherwise (or when that path
// fails) it falls through to the gateway's speech-to-text capability, whose
// own fallback guarantees a usable string.
type TranscriptExtractor struct {
	gateway inference.Invoker
	whisper inference.SpeechTranscriber // optional
	ffmpeg  *FFmpeg
	workDir string
	logger  *zap.Logger
}

// NewTranscriptExtractor creates a transcript extractor. whisper may be nil.
func NewTranscriptExtractor(gateway inference.Invoker, whisper inference.SpeechTranscriber, ffmpeg *FFmpeg, workDir string, logger *zap.Logger) *TranscriptExtractor {
	if workDir == "" {
		workDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptExtractor{
		gateway: gateway,
		whisper: whisper,
		ffmpeg:  ffmpeg,
		workDir: workDir,
		logger:  logger,
	}
}

// Extract returns the transcript text for the video.
func (t *TranscriptExtractor) Extract(ctx context.Context, videoURL string) (string, bool) {
	if t.whisper != nil && t.ffmpeg != nil {
		if text, err := t.transcribeAudio(ctx, videoURL); err == nil {
			return text, false
		} else {
			t.logger.Warn("whisper transcription failed, falling back to gateway",
				zap.String("video_url", videoURL), zap.Error(err))
		}
	}

	result := t.gateway.Invoke(ctx, inference.CapabilitySpeechToText, videoURL)
	if result.Text == "" {
		return "Unable to extract transcript", true
	}
	return result.Text, result.Fallback
}

func (t *TranscriptExtractor) transcribeAudio(ctx context.Context, videoURL string) (string, error) {
	audioPath := filepath.Join(t.workDir, uuid.New().String()+".wav")
	defer func() { _ = os.Remove(audioPath) }()

	if err := t.ffmpeg.ExtractAudio(ctx, videoURL, audioPath); err != nil {
		return "", err
	}
	return t.whisper.TranscribeFile(ctx, audioPath)
}
