package analysis

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner executes an external binary and returns its stdout. Decode
// work goes through this seam so media handling is testable without ffmpeg.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns captured stdout.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}

// FFmpeg drives ffmpeg/ffprobe for metadata, frame capture and audio
// extraction. Inputs may be local paths or URLs; ffmpeg streams remote
// inputs itself.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
}

// NewFFmpeg creates an FFmpeg helper. Empty paths default to binaries on PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string, runner CommandRunner) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, runner: runner}
}

// ProbeDuration returns the container duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, input string) (float64, error) {
	out, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	s := strings.TrimSpace(string(out))
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return dur, nil
}

// CaptureFrame decodes one still image at the given position and returns it
// as JPEG bytes.
func (f *FFmpeg) CaptureFrame(ctx context.Context, input string, positionSec float64) ([]byte, error) {
	out, err := f.runner.Run(ctx, f.ffmpegPath,
		"-ss", fmt.Sprintf("%.3f", positionSec),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "4",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"pipe:1")
	if err != nil {
		return nil, fmt.Errorf("capture frame at %.3fs: %w", positionSec, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frame decoded at %.3fs", positionSec)
	}
	return out, nil
}

// ExtractAudio writes the audio channel as 16kHz mono WAV to outPath.
func (f *FFmpeg) ExtractAudio(ctx context.Context, input, outPath string) error {
	_, err := f.runner.Run(ctx, f.ffmpegPath,
		"-y",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outPath)
	if err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}
