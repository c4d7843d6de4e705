package reports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscan/backend/internal/models"
)

func sampleReport() *models.VerificationReport {
	return &models.VerificationReport{
		ID:                 uuid.New(),
		VideoID:            uuid.New(),
		UserID:             uuid.New(),
		AuthenticityScore:  73,
		DeepfakeLikelihood: 15,
		Transcript:         "spoken words",
		Sentiment:          models.SentimentDistribution{Positive: 60, Negative: 10, Neutral: 30},
		TamperIndicators:   []string{"Audio-video synchronization anomalies found"},
		KeyFrames:          []string{"data:image/jpeg;base64,AAAA"},
		Metadata: models.ReportMetadata{
			ProcessingDate: time.Now().UTC().Truncate(time.Second),
			ModelsUsed:     []string{"visual-model"},
			FramesSampled:  5,
			Degraded:       true,
		},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	now := time.Now()
	mock.ExpectQuery("INSERT INTO verification_reports").
		WithArgs(rep.ID, rep.VideoID, rep.UserID, rep.AuthenticityScore, rep.DeepfakeLikelihood, rep.Transcript,
			mustJSON(t, rep.Sentiment), mustJSON(t, rep.TamperIndicators), mustJSON(t, rep.KeyFrames), mustJSON(t, rep.Metadata)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	repo := NewRepository(mock)
	require.NoError(t, repo.Insert(context.Background(), rep))
	assert.Equal(t, now, rep.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Insert_AssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	rep.ID = uuid.Nil
	mock.ExpectQuery("INSERT INTO verification_reports").
		WithArgs(pgxmock.AnyArg(), rep.VideoID, rep.UserID, rep.AuthenticityScore, rep.DeepfakeLikelihood, rep.Transcript,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	repo := NewRepository(mock)
	require.NoError(t, repo.Insert(context.Background(), rep))
	assert.NotEqual(t, uuid.Nil, rep.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Insert_NilSlicesStoredAsEmptyArrays(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	rep.TamperIndicators = nil
	rep.KeyFrames = nil
	mock.ExpectQuery("INSERT INTO verification_reports").
		WithArgs(rep.ID, rep.VideoID, rep.UserID, rep.AuthenticityScore, rep.DeepfakeLikelihood, rep.Transcript,
			mustJSON(t, rep.Sentiment), []byte("[]"), []byte("[]"), mustJSON(t, rep.Metadata)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	repo := NewRepository(mock)
	require.NoError(t, repo.Insert(context.Background(), rep))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func reportColumns() []string {
	return []string{"id", "video_id", "user_id", "authenticity_score", "deepfake_likelihood", "transcript", "sentiment", "tamper_indicators", "key_frames", "metadata", "created_at"}
}

func TestRepository_LatestByVideo(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	rep.CreatedAt = time.Now()
	rows := pgxmock.NewRows(reportColumns()).
		AddRow(rep.ID, rep.VideoID, rep.UserID, rep.AuthenticityScore, rep.DeepfakeLikelihood, rep.Transcript,
			mustJSON(t, rep.Sentiment), mustJSON(t, rep.TamperIndicators), mustJSON(t, rep.KeyFrames), mustJSON(t, rep.Metadata), rep.CreatedAt)
	mock.ExpectQuery("SELECT (.+) FROM verification_reports WHERE video_id").
		WithArgs(rep.VideoID).
		WillReturnRows(rows)

	repo := NewRepository(mock)
	got, err := repo.LatestByVideo(context.Background(), rep.VideoID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rep.AuthenticityScore, got.AuthenticityScore)
	assert.Equal(t, rep.Sentiment, got.Sentiment)
	assert.Equal(t, rep.TamperIndicators, got.TamperIndicators)
	assert.Equal(t, rep.Metadata.ModelsUsed, got.Metadata.ModelsUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LatestByVideo_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	videoID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM verification_reports WHERE video_id").
		WithArgs(videoID).
		WillReturnRows(pgxmock.NewRows(reportColumns()))

	repo := NewRepository(mock)
	got, err := repo.LatestByVideo(context.Background(), videoID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM video_uploads WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count", "completed", "failed"}).AddRow(10, 7, 2))
	mock.ExpectQuery("SELECT (.+) FROM verification_reports WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg", "flagged"}).AddRow(7, 81.5, 3))

	repo := NewRepository(mock)
	stats, err := repo.Stats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{
		TotalVideos:     10,
		CompletedVideos: 7,
		FailedVideos:    2,
		TotalReports:    7,
		AverageScore:    81.5,
		FlaggedReports:  3,
	}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
