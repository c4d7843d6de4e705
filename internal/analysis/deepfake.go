package analysis

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/inference"
)

// NeutralLikelihood is the prior returned when no frame produced a usable
// classification.
const NeutralLikelihood = 50

// DeepfakeScorer reduces per-frame visual classifications to one aggregate
// likelihood in [0,100]. Higher means more likely synthetic or manipulated.
type DeepfakeScorer struct {
	gateway inference.Invoker
	logger  *zap.Logger
}

// NewDeepfakeScorer creates a deepfake scorer over the inference gateway.
func NewDeepfakeScorer(gateway inference.Invoker, logger *zap.Logger) *DeepfakeScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeepfakeScorer{gateway: gateway, logger: logger}
}

// Score classifies each frame and averages the per-frame fake likelihood:
// a FAKE label contributes confidence, any other label contributes
// 1-confidence. An empty frame sequence (or zero usable classifications)
// returns the neutral prior 50. The second return reports whether any frame
// was scored with the gateway's fallback result.
func (d *DeepfakeScorer) Score(ctx context.Context, frames []Frame) (int, bool) {
	if len(frames) == 0 {
		return NeutralLikelihood, false
	}

	total := 0.0
	usable := 0
	degraded := false
	for _, frame := range frames {
		result := d.gateway.Invoke(ctx, inference.CapabilityDeepfakeClassify, frame.Base64())
		if result.Fallback {
			degraded = true
		}
		if len(result.Labels) == 0 {
			continue
		}
		top := result.Labels[0]
		fake := top.Score
		if !strings.EqualFold(top.Label, "FAKE") {
			fake = 1 - top.Score
		}
		total += fake * 100
		usable++
	}
	if usable == 0 {
		return NeutralLikelihood, degraded
	}
	return int(math.Round(total / float64(usable))), degraded
}
