package models

import (
	"time"

	"github.com/google/uuid"
)

// SentimentDistribution is a 3-way percentage split over the transcript.
// The three fields always sum to 100.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// ReportMetadata records how a report was produced.
type ReportMetadata struct {
	ProcessingDate time.Time `json:"processing_date"`
	ModelsUsed     []string  `json:"models_used"`
	FramesSampled  int       `json:"frames_sampled"`
	Degraded       bool      `json:"degraded"` // true when any inference fallback was used
}

// VerificationReport is the terminal artifact of one pipeline run. Reports
// are insert-only: the history of a video is the set of its reports.
type VerificationReport struct {
	ID                 uuid.UUID             `json:"id"`
	VideoID            uuid.UUID             `json:"video_id"`
	UserID             uuid.UUID             `json:"user_id"`
	AuthenticityScore  int                   `json:"authenticity_score"`
	DeepfakeLikelihood int                   `json:"deepfake_likelihood"`
	Transcript         string                `json:"transcript"`
	Sentiment          SentimentDistribution `json:"sentiment_analysis"`
	TamperIndicators   []string              `json:"tampering_indicators"`
	KeyFrames          []string              `json:"key_frames"`
	Metadata           ReportMetadata        `json:"metadata"`
	CreatedAt          time.Time             `json:"created_at"`
}
