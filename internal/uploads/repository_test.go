package uploads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscan/backend/internal/models"
)

func TestRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	up := &models.VideoUpload{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Filename:    "clip.mp4",
		StoragePath: "videos/u/v.mp4",
		ContentType: "video/mp4",
		SizeBytes:   1024,
		Status:      models.UploadStatusPending,
	}
	now := time.Now()
	mock.ExpectQuery("INSERT INTO video_uploads").
		WithArgs(up.ID, up.UserID, up.Filename, up.StoragePath, up.ContentType, up.SizeBytes, up.Status).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	repo := NewRepository(mock)
	require.NoError(t, repo.Create(context.Background(), up))
	assert.Equal(t, now, up.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	videoID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		want    *models.VideoUpload
		wantErr bool
	}{
		{
			name: "upload found",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "user_id", "filename", "storage_path", "content_type", "size_bytes", "status", "created_at", "updated_at"}).
					AddRow(videoID, userID, "clip.mp4", "videos/u/v.mp4", "video/mp4", int64(1024), models.UploadStatusPending, now, now)
				mock.ExpectQuery("SELECT (.+) FROM video_uploads WHERE id").
					WithArgs(videoID).
					WillReturnRows(rows)
			},
			want: &models.VideoUpload{
				ID: videoID, UserID: userID, Filename: "clip.mp4", StoragePath: "videos/u/v.mp4",
				ContentType: "video/mp4", SizeBytes: 1024, Status: models.UploadStatusPending,
				CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name: "upload missing yields nil without error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT (.+) FROM video_uploads WHERE id").
					WithArgs(videoID).
					WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "filename", "storage_path", "content_type", "size_bytes", "status", "created_at", "updated_at"}))
			},
			want: nil,
		},
		{
			name: "database error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT (.+) FROM video_uploads WHERE id").
					WithArgs(videoID).
					WillReturnError(assert.AnError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			repo := NewRepository(mock)
			got, err := repo.GetByID(context.Background(), videoID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_TransitionStatus(t *testing.T) {
	videoID := uuid.New()

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"pending row transitions", 1, true},
		{"already processing row does not", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec("UPDATE video_uploads SET status").
				WithArgs(models.UploadStatusProcessing, videoID, models.UploadStatusPending).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			repo := NewRepository(mock)
			moved, err := repo.TransitionStatus(context.Background(), videoID, models.UploadStatusPending, models.UploadStatusProcessing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, moved)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	videoID := uuid.New()
	mock.ExpectExec("UPDATE video_uploads SET status").
		WithArgs(models.UploadStatusCompleted, videoID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock)
	require.NoError(t, repo.UpdateStatus(context.Background(), videoID, models.UploadStatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	videoID := uuid.New()

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"existing row removed", 1, true},
		{"missing row reported", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec("DELETE FROM video_uploads").
				WithArgs(videoID).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			repo := NewRepository(mock)
			deleted, err := repo.Delete(context.Background(), videoID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, deleted)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "user_id", "filename", "storage_path", "content_type", "size_bytes", "status", "created_at", "updated_at"}).
		AddRow(uuid.New(), userID, "b.mp4", "videos/u/b.mp4", "video/mp4", int64(2048), models.UploadStatusCompleted, now, now).
		AddRow(uuid.New(), userID, "a.mp4", "videos/u/a.mp4", "video/mp4", int64(1024), models.UploadStatusFailed, now.Add(-time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM video_uploads WHERE user_id").
		WithArgs(userID).
		WillReturnRows(rows)

	repo := NewRepository(mock)
	list, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.mp4", list[0].Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}
