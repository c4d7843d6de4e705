package uploads

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veriscan/backend/internal/models"
)

// Pool is the subset of pgxpool.Pool the repository needs. Narrow so pgxmock
// can stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles video upload persistence.
type Repository struct {
	pool Pool
}

// NewRepository creates an uploads repository.
func NewRepository(pool Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new upload record (status pending).
func (r *Repository) Create(ctx context.Context, up *models.VideoUpload) error {
	const q = `INSERT INTO video_uploads (id, user_id, filename, storage_path, content_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, up.ID, up.UserID, up.Filename, up.StoragePath, up.ContentType, up.SizeBytes, up.Status).
		Scan(&up.CreatedAt, &up.UpdatedAt)
}

// GetByID returns an upload by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoUpload, error) {
	const q = `SELECT id, user_id, filename, storage_path, content_type, size_bytes, status, created_at, updated_at
		FROM video_uploads WHERE id = $1`
	var up models.VideoUpload
	err := r.pool.QueryRow(ctx, q, id).Scan(&up.ID, &up.UserID, &up.Filename, &up.StoragePath, &up.ContentType, &up.SizeBytes, &up.Status, &up.CreatedAt, &up.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &up, nil
}

// ListByUser returns all uploads for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoUpload, error) {
	const q = `SELECT id, user_id, filename, storage_path, content_type, size_bytes, status, created_at, updated_at
		FROM video_uploads WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.VideoUpload
	for rows.Next() {
		var up models.VideoUpload
		if err := rows.Scan(&up.ID, &up.UserID, &up.Filename, &up.StoragePath, &up.ContentType, &up.SizeBytes, &up.Status, &up.CreatedAt, &up.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, up)
	}
	return list, rows.Err()
}

// UpdateStatus sets upload status unconditionally. The pipeline uses this
// for its terminal completed/failed transitions.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE video_uploads SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, status, id)
	return err
}

// Delete removes an upload row and reports whether it existed. Reports
// reference uploads with ON DELETE CASCADE, so the video's report history
// goes with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `DELETE FROM video_uploads WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// TransitionStatus moves an upload from one status to another and reports
// whether the transition happened. Guards the single pending → processing
// trigger per video.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	const q = `UPDATE video_uploads SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
