package reports

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veriscan/backend/internal/middleware"
	"github.com/veriscan/backend/internal/models"
	"github.com/veriscan/backend/pkg/response"
)

// Handler handles verification report HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /api/reports. Returns the caller's reports, newest first.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list reports failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to list reports")
		return
	}
	if list == nil {
		list = []models.VerificationReport{}
	}
	response.OK(c, list)
}

// GetByVideo handles GET /api/reports/video/:id. Returns the latest report
// for the video, owner only.
func (h *Handler) GetByVideo(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rep, err := h.repo.LatestByVideo(c.Request.Context(), videoID)
	if err != nil {
		h.logger.Error("get report failed", zap.Error(err), zap.String("video_id", videoID.String()))
		response.Internal(c, "failed to load report")
		return
	}
	if rep == nil {
		response.NotFound(c, "no report for this video")
		return
	}
	if rep.UserID != userID {
		response.Forbidden(c, "not authorized for this report")
		return
	}
	response.OK(c, rep)
}

// Dashboard handles GET /api/dashboard. Aggregate verification stats for the
// caller.
func (h *Handler) Dashboard(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	stats, err := h.repo.Stats(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("dashboard stats failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to compute dashboard stats")
		return
	}
	response.OK(c, stats)
}
