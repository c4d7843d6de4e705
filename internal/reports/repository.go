package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veriscan/backend/internal/models"
)

// Pool is the subset of pgxpool.Pool the repository needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists verification reports. Reports are insert-only; there
// is no update or delete path.
type Repository struct {
	pool Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes a new report row. The JSON columns are marshaled here so the
// pipeline only ever deals in typed structs.
func (r *Repository) Insert(ctx context.Context, rep *models.VerificationReport) error {
	sentiment, err := json.Marshal(rep.Sentiment)
	if err != nil {
		return fmt.Errorf("marshal sentiment: %w", err)
	}
	indicators, err := json.Marshal(orEmpty(rep.TamperIndicators))
	if err != nil {
		return fmt.Errorf("marshal tamper indicators: %w", err)
	}
	keyFrames, err := json.Marshal(orEmpty(rep.KeyFrames))
	if err != nil {
		return fmt.Errorf("marshal key frames: %w", err)
	}
	metadata, err := json.Marshal(rep.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	const q = `INSERT INTO verification_reports
		(id, video_id, user_id, authenticity_score, deepfake_likelihood, transcript, sentiment, tamper_indicators, key_frames, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q,
		rep.ID, rep.VideoID, rep.UserID, rep.AuthenticityScore, rep.DeepfakeLikelihood,
		rep.Transcript, sentiment, indicators, keyFrames, metadata,
	).Scan(&rep.CreatedAt)
}

// LatestByVideo returns the newest report for a video, or nil when none exists.
func (r *Repository) LatestByVideo(ctx context.Context, videoID uuid.UUID) (*models.VerificationReport, error) {
	const q = selectColumns + ` WHERE video_id = $1 ORDER BY created_at DESC LIMIT 1`
	row := r.pool.QueryRow(ctx, q, videoID)
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rep, nil
}

// ListByUser returns all reports for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VerificationReport, error) {
	const q = selectColumns + ` WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.VerificationReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rep)
	}
	return list, rows.Err()
}

// DashboardStats summarizes a user's verification history.
type DashboardStats struct {
	TotalVideos     int     `json:"total_videos"`
	CompletedVideos int     `json:"completed_videos"`
	FailedVideos    int     `json:"failed_videos"`
	TotalReports    int     `json:"total_reports"`
	AverageScore    float64 `json:"average_score"`
	FlaggedReports  int     `json:"flagged_reports"` // reports with at least one tamper indicator
}

// Stats computes dashboard aggregates for a user in two queries.
func (r *Repository) Stats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	var stats DashboardStats
	const uploadsQ = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'failed')
		FROM video_uploads WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, uploadsQ, userID).
		Scan(&stats.TotalVideos, &stats.CompletedVideos, &stats.FailedVideos); err != nil {
		return nil, err
	}
	const reportsQ = `SELECT COUNT(*),
		COALESCE(AVG(authenticity_score), 0),
		COUNT(*) FILTER (WHERE jsonb_array_length(tamper_indicators) > 0)
		FROM verification_reports WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, reportsQ, userID).
		Scan(&stats.TotalReports, &stats.AverageScore, &stats.FlaggedReports); err != nil {
		return nil, err
	}
	return &stats, nil
}

const selectColumns = `SELECT id, video_id, user_id, authenticity_score, deepfake_likelihood, transcript, sentiment, tamper_indicators, key_frames, metadata, created_at
	FROM verification_reports`

func scanReport(row pgx.Row) (*models.VerificationReport, error) {
	var (
		rep        models.VerificationReport
		sentiment  []byte
		indicators []byte
		keyFrames  []byte
		metadata   []byte
	)
	if err := row.Scan(&rep.ID, &rep.VideoID, &rep.UserID, &rep.AuthenticityScore, &rep.DeepfakeLikelihood,
		&rep.Transcript, &sentiment, &indicators, &keyFrames, &metadata, &rep.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sentiment, &rep.Sentiment); err != nil {
		return nil, fmt.Errorf("unmarshal sentiment: %w", err)
	}
	if err := json.Unmarshal(indicators, &rep.TamperIndicators); err != nil {
		return nil, fmt.Errorf("unmarshal tamper indicators: %w", err)
	}
	if err := json.Unmarshal(keyFrames, &rep.KeyFrames); err != nil {
		return nil, fmt.Errorf("unmarshal key frames: %w", err)
	}
	if err := json.Unmarshal(metadata, &rep.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &rep, nil
}

// orEmpty keeps JSON columns as [] instead of null for nil slices.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
