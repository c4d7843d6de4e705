package analysis

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"
)

const frameDataURLPrefix = "data:image/jpeg;base64,"

// Frame is one still image captured at a position in the video, encoded as
// a JPEG data URL. Insertion order is capture order is chronological order.
type Frame struct {
	TimestampSec float64 `json:"timestamp_sec"`
	DataURL      string  `json:"data_url"`
}

// Base64 returns the raw base64 payload without the data URL prefix, the
// form the visual classifier endpoint accepts.
func (f Frame) Base64() string {
	return strings.TrimPrefix(f.DataURL, frameDataURLPrefix)
}

// FrameSampler captures a bounded set of evenly time-spaced frames from a
// video resource.
type FrameSampler struct {
	ffmpeg *FFmpeg
	logger *zap.Logger
}

// NewFrameSampler creates a frame sampler.
func NewFrameSampler(ffmpeg *FFmpeg, logger *zap.Logger) *FrameSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameSampler{ffmpeg: ffmpeg, logger: logger}
}

// Sample captures up to count frames at duration/count intervals starting
// from position 0. Capture timestamps are strictly increasing. A video whose
// metadata cannot be read (unreachable URL, corrupt container, zero
// duration) yields an empty sequence, not an error: downstream stages treat
// no frames as valid degraded input. Individual capture failures skip that
// position and continue.
func (s *FrameSampler) Sample(ctx context.Context, videoURL string, count int) []Frame {
	if count <= 0 {
		return nil
	}
	duration, err := s.ffmpeg.ProbeDuration(ctx, videoURL)
	if err != nil {
		s.logger.Warn("video metadata unavailable, sampling no frames",
			zap.String("video_url", videoURL), zap.Error(err))
		return nil
	}
	if duration <= 0 {
		return nil
	}

	interval := duration / float64(count)
	frames := make([]Frame, 0, count)
	for position := 0.0; position < duration && len(frames) < count; position += interval {
		jpeg, err := s.ffmpeg.CaptureFrame(ctx, videoURL, position)
		if err != nil {
			s.logger.Debug("frame capture failed, skipping position",
				zap.Float64("position_sec", position), zap.Error(err))
			continue
		}
		frames = append(frames, Frame{
			TimestampSec: position,
			DataURL:      frameDataURLPrefix + base64.StdEncoding.EncodeToString(jpeg),
		})
	}
	return frames
}
