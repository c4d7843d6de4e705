package uploads

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/middleware"
	"github.com/veriscan/backend/internal/models"
	"github.com/veriscan/backend/pkg/queue"
	"github.com/veriscan/backend/pkg/response"
	"github.com/veriscan/backend/pkg/storage"
)

// Handler handles video upload HTTP endpoints.
type Handler struct {
	repo     *Repository
	s3       *storage.S3
	queue    *queue.Queue
	maxBytes int64
	logger   *zap.Logger
}

// NewHandler creates an uploads handler.
func NewHandler(repo *Repository, s3 *storage.S3, q *queue.Queue, maxBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, queue: q, maxBytes: maxBytes, logger: logger}
}

type createUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

// Create handles POST /api/uploads. Registers a pending upload and returns a
// presigned PUT URL for the browser to push the file directly to S3.
func (h *Handler) Create(c *gin.Context) {
	var req createUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename and size_bytes are required")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if !storage.ValidateVideoFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported video format; accepted: mp4, webm, mov, avi")
		return
	}
	if req.SizeBytes <= 0 {
		response.BadRequest(c, "size_bytes must be positive")
		return
	}
	if h.maxBytes > 0 && req.SizeBytes > h.maxBytes {
		response.PayloadTooLarge(c, "video exceeds the maximum upload size")
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}

	videoID := uuid.New()
	up := &models.VideoUpload{
		ID:          videoID,
		UserID:      userID,
		Filename:    req.Filename,
		StoragePath: storage.VideoKey(userID.String(), videoID.String(), req.Filename),
		ContentType: contentType,
		SizeBytes:   req.SizeBytes,
		Status:      models.UploadStatusPending,
	}
	if err := h.repo.Create(c.Request.Context(), up); err != nil {
		h.logger.Error("create upload row failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to register upload")
		return
	}

	if h.s3 == nil {
		response.Internal(c, "storage not configured")
		return
	}
	uploadURL, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), up.StoragePath, contentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to generate upload URL")
		return
	}

	response.Created(c, gin.H{
		"upload":     up,
		"upload_url": uploadURL,
		"expires_in": int(h.s3.PresignExpire().Seconds()),
	})
}

// UploadFile handles POST /api/uploads/:id/file. Server-side upload path for
// clients that cannot PUT to the bucket directly (e.g. restrictive bucket
// CORS); the presigned flow from Create is the default. The caller still
// triggers analysis through Complete afterwards.
func (h *Handler) UploadFile(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid upload id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	up, err := h.repo.GetByID(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("get upload failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to load upload")
		return
	}
	if up == nil {
		response.NotFound(c, "upload not found")
		return
	}
	if up.UserID != userID {
		response.Forbidden(c, "not authorized for this upload")
		return
	}
	if up.Status != models.UploadStatusPending {
		response.Conflict(c, "upload already submitted")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		response.PayloadTooLarge(c, "video exceeds the maximum upload size")
		return
	}

	if h.s3 == nil {
		response.Internal(c, "storage not configured")
		return
	}
	if _, err := h.s3.Upload(c.Request.Context(), up.StoragePath, up.ContentType, file, header.Size); err != nil {
		h.logger.Error("server-side upload failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to store video")
		return
	}

	h.logger.Info("video stored via server-side upload",
		zap.String("video_id", videoID.String()),
		zap.Int64("size_bytes", header.Size))
	response.OK(c, gin.H{"id": videoID, "storage_path": up.StoragePath})
}

// Complete handles POST /api/uploads/:id/complete. Called by the browser once
// the presigned PUT finished; verifies the object landed, moves the upload
// pending → processing and enqueues the analysis job. The status guard makes
// the trigger idempotent: a second call gets 409 and no second job.
func (h *Handler) Complete(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid upload id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	up, err := h.repo.GetByID(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("get upload failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to load upload")
		return
	}
	if up == nil {
		response.NotFound(c, "upload not found")
		return
	}
	if up.UserID != userID {
		response.Forbidden(c, "not authorized for this upload")
		return
	}

	if h.s3 != nil {
		if _, err := h.s3.HeadObject(c.Request.Context(), up.StoragePath); err != nil {
			response.BadRequest(c, "video file not found in storage; upload may not have finished")
			return
		}
	}

	moved, err := h.repo.TransitionStatus(c.Request.Context(), videoID, models.UploadStatusPending, models.UploadStatusProcessing)
	if err != nil {
		h.logger.Error("transition upload status failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to start analysis")
		return
	}
	if !moved {
		response.Conflict(c, "analysis already triggered for this upload")
		return
	}

	if err := h.queue.EnqueueVideoAnalysis(c.Request.Context(), queue.VideoAnalysisPayload{
		VideoID:     videoID,
		StoragePath: up.StoragePath,
		UserID:      userID,
	}); err != nil {
		// Roll the status back so the client can retry the trigger.
		if _, rbErr := h.repo.TransitionStatus(c.Request.Context(), videoID, models.UploadStatusProcessing, models.UploadStatusPending); rbErr != nil {
			h.logger.Error("rollback upload status failed", zap.Error(rbErr), zap.String("video_id", videoID.String()))
		}
		h.logger.Error("enqueue analysis failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to enqueue analysis")
		return
	}

	h.logger.Info("video analysis enqueued",
		zap.String("video_id", videoID.String()),
		zap.String("user_id", userID.String()))
	response.OK(c, gin.H{"id": videoID, "status": models.UploadStatusProcessing})
}

// Get handles GET /api/uploads/:id.
func (h *Handler) Get(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid upload id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	up, err := h.repo.GetByID(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("get upload failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to load upload")
		return
	}
	if up == nil {
		response.NotFound(c, "upload not found")
		return
	}
	if up.UserID != userID {
		response.Forbidden(c, "not authorized for this upload")
		return
	}
	response.OK(c, up)
}

// Delete handles DELETE /api/uploads/:id. Removes the stored object (best
// effort) and the upload row; report history cascades with it. Refused while
// analysis is running so the pipeline never loses its input mid-run.
func (h *Handler) Delete(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid upload id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	up, err := h.repo.GetByID(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("get upload failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to load upload")
		return
	}
	if up == nil {
		response.NotFound(c, "upload not found")
		return
	}
	if up.UserID != userID {
		response.Forbidden(c, "not authorized for this upload")
		return
	}
	if up.Status == models.UploadStatusProcessing {
		response.Conflict(c, "analysis in progress; try again later")
		return
	}

	if h.s3 != nil {
		if err := h.s3.DeleteObject(c.Request.Context(), up.StoragePath); err != nil {
			h.logger.Warn("delete video object failed", zap.Error(err), zap.String("storage_path", up.StoragePath))
		}
	}
	deleted, err := h.repo.Delete(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("delete upload row failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to delete upload")
		return
	}
	if !deleted {
		response.NotFound(c, "upload not found")
		return
	}
	response.OK(c, gin.H{"id": videoID})
}

// List handles GET /api/uploads. Returns the caller's uploads, newest first.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list uploads failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to list uploads")
		return
	}
	if list == nil {
		list = []models.VideoUpload{}
	}
	response.OK(c, list)
}
