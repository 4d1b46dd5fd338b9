package videos

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socionet/backend/internal/middleware"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
)

const playbackURLTTL = time.Hour

// Store is the persistence the video handlers need. *Repository implements it.
type Store interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	List(ctx context.Context, role *models.Role) ([]models.Video, error)
	Update(ctx context.Context, id uuid.UUID, u Update) (*models.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CompletedSet(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	SetProgress(ctx context.Context, userID, videoID uuid.UUID, completed bool) (models.VideoProgress, error)
}

// URLSigner issues signed object references. *storage.S3 implements it.
type URLSigner interface {
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
}

// View is a video plus the caller's completion state.
type View struct {
	models.Video
	Completed bool   `json:"completed"`
	SignedURL string `json:"signedUrl,omitempty"`
}

// Handler serves the viewer-facing catalog.
type Handler struct {
	store  Store
	signer URLSigner // nil when storage is not configured
	bucket string
	logger *zap.Logger
}

// NewHandler creates a viewer handler. signer may be nil.
func NewHandler(store Store, signer URLSigner, bucket string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, signer: signer, bucket: bucket, logger: logger}
}

// List handles GET /videos.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := middleware.UserID(c)
	role := middleware.UserRole(c)

	var filter *models.Role
	if role != models.RoleAdmin {
		filter = &role
	}
	list, err := h.store.List(ctx, filter)
	if err != nil {
		h.logger.Error("list videos failed", zap.Error(err))
		response.Internal(c, "failed to list videos")
		return
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, v := range list {
		ids = append(ids, v.ID)
	}
	done, err := h.store.CompletedSet(ctx, userID, ids)
	if err != nil {
		h.logger.Error("load progress failed", zap.Error(err))
		response.Internal(c, "failed to list videos")
		return
	}
	views := make([]View, 0, len(list))
	for _, v := range list {
		views = append(views, View{Video: v, Completed: done[v.ID]})
	}
	response.OK(c, gin.H{"videos": views})
}

// Get handles GET /videos/:id.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Not found")
		return
	}
	video, err := h.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Not found")
		return
	}
	if err != nil {
		h.logger.Error("get video failed", zap.Error(err))
		response.Internal(c, "failed to load video")
		return
	}
	if !video.VisibleTo(middleware.UserRole(c)) {
		response.Forbidden(c, "Forbidden")
		return
	}

	userID, _ := middleware.UserID(c)
	done, err := h.store.CompletedSet(ctx, userID, []uuid.UUID{id})
	if err != nil {
		h.logger.Error("load progress failed", zap.Error(err))
		response.Internal(c, "failed to load video")
		return
	}
	view := View{Video: *video, Completed: done[id]}
	if h.signer != nil && h.bucket != "" {
		url, err := h.signer.PresignGet(ctx, h.bucket, video.StoragePath, playbackURLTTL)
		if err != nil {
			h.logger.Error("sign playback url failed", zap.String("video_id", id.String()), zap.Error(err))
			response.Internal(c, "failed to sign video url")
			return
		}
		view.SignedURL = url
	}
	response.OK(c, gin.H{"video": view})
}

// SetProgress handles PATCH /videos/:id/progress.
func (h *Handler) SetProgress(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Not found")
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		response.BadRequest(c, "completed is required")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Missing token")
		return
	}
	p, err := h.store.SetProgress(c.Request.Context(), userID, id, *req.Completed)
	if err != nil {
		h.logger.Error("set progress failed", zap.String("video_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to save progress")
		return
	}
	response.OK(c, gin.H{"progress": gin.H{"videoId": p.VideoID, "completed": p.Completed}})
}
