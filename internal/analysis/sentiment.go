package analysis

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/inference"
	"github.com/veriscan/backend/internal/models"
)

// FlatSentimentPrior is returned when the sentiment endpoint produces
// nothing usable at all.
var FlatSentimentPrior = models.SentimentDistribution{Positive: 33, Negative: 33, Neutral: 34}

// SentimentAnalyzer classifies transcript text into a 3-way percentage
// distribution that always sums to 100.
type SentimentAnalyzer struct {
	gateway inference.Invoker
	logger  *zap.Logger
}

// NewSentimentAnalyzer creates a sentiment analyzer over the inference gateway.
func NewSentimentAnalyzer(gateway inference.Invoker, logger *zap.Logger) *SentimentAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentimentAnalyzer{gateway: gateway, logger: logger}
}

// Analyze scales the endpoint's POSITIVE/NEGATIVE probabilities to rounded
// percentages and derives neutral as the remainder, so the distribution sums
// to exactly 100. An empty classification yields the flat prior. The second
// return reports whether a degraded (fallback or prior) result was used.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string) (models.SentimentDistribution, bool) {
	result := a.gateway.Invoke(ctx, inference.CapabilitySentimentClassify, text)
	if len(result.Labels) == 0 {
		a.logger.Warn("sentiment classification empty, using flat prior")
		return FlatSentimentPrior, true
	}

	var positive, negative float64
	for _, ls := range result.Labels {
		switch strings.ToUpper(ls.Label) {
		case "POSITIVE":
			positive = ls.Score * 100
		case "NEGATIVE":
			negative = ls.Score * 100
		}
	}

	p := int(math.Round(positive))
	n := int(math.Round(negative))
	if p > 100 {
		p = 100
	}
	if n > 100-p {
		n = 100 - p
	}
	return models.SentimentDistribution{
		Positive: p,
		Negative: n,
		Neutral:  100 - p - n,
	}, result.Fallback
}
