package inference

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// SpeechTranscriber transcribes an extracted audio file. Implemented by
// WhisperClient for OpenAI-compatible endpoints.
type SpeechTranscriber interface {
	TranscribeFile(ctx context.Context, audioPath string) (string, error)
}

// WhisperClient transcribes audio through an OpenAI-compatible endpoint.
// It is the preferred speech path when configured; the gateway's
// speech-to-text capability is the fallback route.
type WhisperClient struct {
	cli    *openai.Client
	logger *zap.Logger
}

// NewWhisperClient creates a Whisper transcriber. baseURL may be empty for
// the default OpenAI endpoint.
func NewWhisperClient(apiKey, baseURL string, logger *zap.Logger) *WhisperClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &WhisperClient{cli: openai.NewClientWithConfig(cfg), logger: logger}
}

// TranscribeFile runs Whisper on the audio file and returns the text.
func (w *WhisperClient) TranscribeFile(ctx context.Context, audioPath string) (string, error) {
	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("empty transcription result")
	}
	return text, nil
}
