package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscan/backend/internal/inference"
	"github.com/veriscan/backend/internal/models"
)

type fakeFrameSource struct {
	frames []Frame
}

func (f fakeFrameSource) Sample(context.Context, string, int) []Frame { return f.frames }

type fakeTranscript struct {
	text     string
	degraded bool
}

func (f fakeTranscript) Extract(context.Context, string) (string, bool) { return f.text, f.degraded }

type fakeReportStore struct {
	inserted []*models.VerificationReport
	err      error
}

func (f *fakeReportStore) Insert(_ context.Context, rep *models.VerificationReport) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rep)
	return nil
}

type fakeUploadStore struct {
	statuses []string
	failOn   string
}

func (f *fakeUploadStore) UpdateStatus(_ context.Context, _ uuid.UUID, status string) error {
	if status == f.failOn {
		return errors.New("database unavailable")
	}
	f.statuses = append(f.statuses, status)
	return nil
}

// fakeNotifier is published to from both branch goroutines, so it locks.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Publish(_ context.Context, _, _ uuid.UUID, event, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == name {
			n++
		}
	}
	return n
}

type fakeURLs struct{}

func (fakeURLs) PublicObjectURL(key string) string { return "https://cdn.example.com/" + key }

func newTestPipeline(gateway inference.Invoker, frames []Frame, transcript TranscriptSource, reports ReportStore, uploads UploadStore, notifier Notifier) *Pipeline {
	return NewPipeline(PipelineConfig{
		Frames:        fakeFrameSource{frames: frames},
		Scorer:        NewDeepfakeScorer(gateway, nil),
		Transcript:    transcript,
		Sentiment:     NewSentimentAnalyzer(gateway, nil),
		Reports:       reports,
		Uploads:       uploads,
		Notifier:      notifier,
		URLs:          fakeURLs{},
		ModelsUsed:    []string{"visual-model", "speech-model", "sentiment-model"},
		FrameCount:    5,
		KeyFrameLimit: 3,
	})
}

func TestPipeline_Process_CleanRun(t *testing.T) {
	gateway := stubInvoker{results: map[inference.Capability]inference.Result{
		inference.CapabilityDeepfakeClassify: {Labels: []inference.LabelScore{{Label: "REAL", Score: 0.9}}},
		inference.CapabilitySentimentClassify: {Labels: []inference.LabelScore{
			{Label: "POSITIVE", Score: 0.8},
			{Label: "NEGATIVE", Score: 0.05},
		}},
	}}
	reports := &fakeReportStore{}
	uploads := &fakeUploadStore{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(gateway, jpegFrames(5), fakeTranscript{text: "calm narration"}, reports, uploads, notifier)

	report, err := pipeline.Process(context.Background(), uuid.New(), "videos/u/v.mp4", uuid.New())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 10, report.DeepfakeLikelihood)
	assert.Equal(t, models.SentimentDistribution{Positive: 80, Negative: 5, Neutral: 15}, report.Sentiment)
	assert.Empty(t, report.TamperIndicators)
	assert.Equal(t, 90, report.AuthenticityScore)
	assert.Equal(t, "calm narration", report.Transcript)
	assert.Len(t, report.KeyFrames, 3)
	assert.Equal(t, 5, report.Metadata.FramesSampled)
	assert.False(t, report.Metadata.Degraded)

	require.Len(t, reports.inserted, 1)
	assert.Equal(t, []string{models.UploadStatusCompleted}, uploads.statuses)
	assert.Equal(t, 1, notifier.count(EventAnalysisCompleted))
	assert.Equal(t, 0, notifier.count(EventAnalysisFailed))
}

func TestPipeline_Process_AllFallbacks(t *testing.T) {
	gateway := stubInvoker{results: map[inference.Capability]inference.Result{
		inference.CapabilityDeepfakeClassify: {Labels: []inference.LabelScore{{Label: "REAL", Score: 0.85}}, Fallback: true},
		inference.CapabilitySentimentClassify: {Labels: []inference.LabelScore{
			{Label: "POSITIVE", Score: 0.6},
			{Label: "NEGATIVE", Score: 0.1},
		}, Fallback: true},
	}}
	reports := &fakeReportStore{}
	uploads := &fakeUploadStore{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(gateway, jpegFrames(5),
		fakeTranscript{text: inference.FallbackTranscript, degraded: true},
		reports, uploads, notifier)

	report, err := pipeline.Process(context.Background(), uuid.New(), "videos/u/v.mp4", uuid.New())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 15, report.DeepfakeLikelihood)
	assert.Equal(t, models.SentimentDistribution{Positive: 60, Negative: 10, Neutral: 30}, report.Sentiment)
	assert.Equal(t, []string{IndicatorAudioSync}, report.TamperIndicators)
	assert.Equal(t, 73, report.AuthenticityScore)
	assert.True(t, report.Metadata.Degraded)

	assert.Equal(t, []string{models.UploadStatusCompleted}, uploads.statuses)
	assert.Equal(t, 1, notifier.count(EventAnalysisCompleted))
}

func TestPipeline_Process_NoFramesSampled(t *testing.T) {
	gateway := stubInvoker{results: map[inference.Capability]inference.Result{
		inference.CapabilitySentimentClassify: {Labels: []inference.LabelScore{
			{Label: "POSITIVE", Score: 0.5},
			{Label: "NEGATIVE", Score: 0.2},
		}},
	}}
	reports := &fakeReportStore{}
	uploads := &fakeUploadStore{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(gateway, nil, fakeTranscript{text: "speech"}, reports, uploads, notifier)

	report, err := pipeline.Process(context.Background(), uuid.New(), "videos/u/v.mp4", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, NeutralLikelihood, report.DeepfakeLikelihood)
	assert.Empty(t, report.KeyFrames)
	assert.Empty(t, report.TamperIndicators, "zero frames is not a transition anomaly")
	assert.Equal(t, []string{models.UploadStatusCompleted}, uploads.statuses)
}

func TestPipeline_Process_InsertFailure(t *testing.T) {
	gateway := stubInvoker{results: map[inference.Capability]inference.Result{}}
	reports := &fakeReportStore{err: errors.New("insert failed")}
	uploads := &fakeUploadStore{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(gateway, jpegFrames(5), fakeTranscript{text: "speech"}, reports, uploads, notifier)

	report, err := pipeline.Process(context.Background(), uuid.New(), "videos/u/v.mp4", uuid.New())
	require.Error(t, err)
	assert.Nil(t, report)

	assert.Empty(t, reports.inserted)
	assert.Equal(t, []string{models.UploadStatusFailed}, uploads.statuses)
	assert.Equal(t, 1, notifier.count(EventAnalysisFailed))
	assert.Equal(t, 0, notifier.count(EventAnalysisCompleted))
}

func TestPipeline_Process_CompletedStatusFailure(t *testing.T) {
	gateway := stubInvoker{results: map[inference.Capability]inference.Result{}}
	reports := &fakeReportStore{}
	uploads := &fakeUploadStore{failOn: models.UploadStatusCompleted}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(gateway, jpegFrames(5), fakeTranscript{text: "speech"}, reports, uploads, notifier)

	report, err := pipeline.Process(context.Background(), uuid.New(), "videos/u/v.mp4", uuid.New())
	require.Error(t, err)
	assert.Nil(t, report)

	assert.Equal(t, []string{models.UploadStatusFailed}, uploads.statuses)
	assert.Equal(t, 1, notifier.count(EventAnalysisFailed))
	assert.Equal(t, 0, notifier.count(EventAnalysisCompleted))
}
