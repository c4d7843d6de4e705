package analysis

import (
	"github.com/veriscan/backend/internal/models"
)

// Tamper indicator strings shown to the user. Wording is part of the report
// contract; do not rephrase without migrating stored reports.
const (
	IndicatorHighManipulation     = "High probability of AI-generated or manipulated content detected"
	IndicatorModerateManipulation = "Moderate signs of potential video manipulation"
	IndicatorNegativeSentiment    = "High negative sentiment detected in speech content"
	IndicatorFrameTransitions     = "Inconsistent frame transitions detected"
	IndicatorAudioSync            = "Audio-video synchronization anomalies found"
)

// Evidence carries pipeline observations that feed the supplementary
// deterministic checks.
type Evidence struct {
	FramesRequested int
	FramesSampled   int
	AudioDegraded   bool // speech path fell back while video frames decoded fine
}

// DetectTamperIndicators derives human-readable anomaly flags. Rules are
// evaluated in fixed order and fire independently; insertion order is
// preserved for display. The likelihood rules (>70 and 50..70) are mutually
// exclusive by construction.
func DetectTamperIndicators(likelihood int, sentiment models.SentimentDistribution, ev Evidence) []string {
	indicators := []string{}

	if likelihood > 70 {
		indicators = append(indicators, IndicatorHighManipulation)
	}
	if likelihood > 50 && likelihood <= 70 {
		indicators = append(indicators, IndicatorModerateManipulation)
	}
	if sentiment.Negative > 60 {
		indicators = append(indicators, IndicatorNegativeSentiment)
	}

	// Supplementary checks. The product's earlier build simulated these with
	// random draws; they are now driven by actual pipeline evidence. A video
	// that decodes frames but not all requested positions had seek/decode
	// discontinuities; a video whose frames decode while the audio path
	// degrades points at a broken or desynchronized audio track.
	if ev.FramesSampled > 0 && ev.FramesSampled < ev.FramesRequested {
		indicators = append(indicators, IndicatorFrameTransitions)
	}
	if ev.FramesSampled > 0 && ev.AudioDegraded {
		indicators = append(indicators, IndicatorAudioSync)
	}

	return indicators
}
