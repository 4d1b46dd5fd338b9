package videos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/internal/middleware"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
	"github.com/socionet/backend/pkg/storage"
)

const uploadURLTTL = 2 * time.Hour

// Prober reads the duration of an uploaded file. *media.Prober implements it.
type Prober interface {
	Probe(ctx context.Context, file string) (media.Metadata, error)
}

// AdminHandler serves catalog management under /admin/videos.
type AdminHandler struct {
	store     Store
	signer    URLSigner         // nil when storage is not configured
	transport storage.Transport // nil when storage is not configured
	prober    Prober
	bucket    string
	uploadDir string
	now       func() time.Time
	logger    *zap.Logger
}

// AdminConfig wires an AdminHandler.
type AdminConfig struct {
	Signer    URLSigner
	Transport storage.Transport
	Prober    Prober
	Bucket    string
	// UploadDir is the parent for direct-upload temp files; empty uses os.TempDir.
	UploadDir string
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(store Store, cfg AdminConfig, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		store:     store,
		signer:    cfg.Signer,
		transport: cfg.Transport,
		prober:    cfg.Prober,
		bucket:    cfg.Bucket,
		uploadDir: cfg.UploadDir,
		now:       time.Now,
		logger:    logger,
	}
}

func (h *AdminHandler) storageConfigured() bool {
	return h.bucket != ""
}

// List handles GET /admin/videos.
func (h *AdminHandler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), nil)
	if err != nil {
		h.logger.Error("list videos failed", zap.Error(err))
		response.Internal(c, "failed to list videos")
		return
	}
	response.OK(c, gin.H{"videos": list})
}

// Create handles POST /admin/videos for an object that is already stored.
func (h *AdminHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if req.Title == "" || req.StoragePath == "" || req.RequiredRole == "" {
		response.BadRequest(c, "title, storagePath, requiredRole are required")
		return
	}
	role := models.Role(req.RequiredRole)
	if !role.Valid() {
		response.BadRequest(c, "Invalid requiredRole")
		return
	}
	v := &models.Video{
		Title:           req.Title,
		Description:     req.Description,
		StoragePath:     req.StoragePath,
		RequiredRole:    role,
		IsPublished:     req.IsPublished,
		DurationSeconds: req.DurationSeconds.Value,
	}
	if uid, ok := middleware.UserID(c); ok {
		v.UploadedByID = &uid
	}
	if err := h.store.Create(c.Request.Context(), v); err != nil {
		h.logger.Error("create video failed", zap.Error(err))
		response.Internal(c, "failed to create video")
		return
	}
	response.Created(c, gin.H{"video": v})
}

// Update handles PATCH /admin/videos/:id.
func (h *AdminHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Not found")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	u := Update{
		DescriptionSet:  req.Description.Set,
		Description:     req.Description.Value,
		IsPublished:     req.IsPublished,
		DurationSet:     req.DurationSeconds.Set,
		DurationSeconds: req.DurationSeconds.Value,
	}
	if req.Title != nil && *req.Title != "" {
		u.Title = req.Title
	}
	if req.RequiredRole != nil && *req.RequiredRole != "" {
		role := models.Role(*req.RequiredRole)
		if !role.Valid() {
			response.BadRequest(c, "Invalid requiredRole")
			return
		}
		u.RequiredRole = &role
	}
	if u.Title == nil && !u.DescriptionSet && u.RequiredRole == nil && u.IsPublished == nil && !u.DurationSet {
		response.BadRequest(c, "No fields to update")
		return
	}

	v, err := h.store.Update(c.Request.Context(), id, u)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Not found")
		return
	}
	if err != nil {
		h.logger.Error("update video failed", zap.String("video_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to update video")
		return
	}
	response.OK(c, gin.H{"video": v})
}

// Delete handles DELETE /admin/videos/:id. The stored object is kept.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Not found")
		return
	}
	err = h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Not found")
		return
	}
	if err != nil {
		h.logger.Error("delete video failed", zap.String("video_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to delete video")
		return
	}
	response.NoContent(c)
}

// UploadURL handles POST /admin/videos/upload-url, issuing a signed PUT for
// a browser upload under videos/.
func (h *AdminHandler) UploadURL(c *gin.Context) {
	if !h.storageConfigured() || h.signer == nil {
		response.Internal(c, "Storage bucket not configured")
		return
	}
	var req UploadURLRequest
	_ = c.ShouldBindJSON(&req)
	if req.FilePath == "" {
		response.BadRequest(c, "filePath is required")
		return
	}
	if !storage.IsVideoKey(req.FilePath) {
		response.BadRequest(c, "Invalid filePath")
		return
	}
	url, err := h.signer.PresignPut(c.Request.Context(), h.bucket, req.FilePath, "", uploadURLTTL)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{"uploadUrl": url, "path": req.FilePath})
}

// Upload handles POST /admin/videos/upload: a multipart file stored as-is
// (no transcode) after probing its duration.
func (h *AdminHandler) Upload(c *gin.Context) {
	if !h.storageConfigured() || h.transport == nil {
		response.Internal(c, "Storage bucket not configured")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	title := strings.TrimSpace(c.PostForm("title"))
	roleStr := c.PostForm("requiredRole")
	if title == "" || roleStr == "" {
		response.BadRequest(c, "title and requiredRole are required")
		return
	}
	role := models.Role(roleStr)
	if !role.Valid() {
		response.BadRequest(c, "Invalid requiredRole")
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		response.BadRequest(c, "Invalid file type")
		return
	}

	dir, err := os.MkdirTemp(h.uploadDir, "socionet-upload-")
	if err != nil {
		response.Internal(c, "Upload failed")
		return
	}
	defer os.RemoveAll(dir)
	local := filepath.Join(dir, "upload"+filepath.Ext(storage.SafeFileName(fh.Filename)))
	if err := c.SaveUploadedFile(fh, local); err != nil {
		h.logger.Error("save upload failed", zap.Error(err))
		response.Internal(c, "Upload failed")
		return
	}

	ctx := c.Request.Context()
	v, err := h.storeUpload(ctx, local, fh.Filename, contentType)
	if err != nil {
		h.logger.Error("direct upload failed", zap.Error(err))
		response.Internal(c, "Upload failed")
		return
	}
	v.Title = title
	if d := c.PostForm("description"); d != "" {
		v.Description = &d
	}
	v.RequiredRole = role
	v.IsPublished = strings.EqualFold(c.PostForm("isPublished"), "true")
	if uid, ok := middleware.UserID(c); ok {
		v.UploadedByID = &uid
	}
	if err := h.store.Create(ctx, v); err != nil {
		h.logger.Error("create video failed", zap.Error(err))
		response.Internal(c, "failed to create video")
		return
	}
	response.Created(c, gin.H{"video": v})
}

// storeUpload probes local and sends it to the bucket, returning a video
// carrying the stored key and duration.
func (h *AdminHandler) storeUpload(ctx context.Context, local, filename, contentType string) (*models.Video, error) {
	var duration *int
	if h.prober != nil {
		meta, err := h.prober.Probe(ctx, local)
		if err != nil {
			return nil, err
		}
		duration = meta.DurationSeconds
	}
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	key, err := h.transport.Upload(ctx, storage.UploadKey(filename, h.now()), contentType, f, info.Size())
	if err != nil {
		return nil, err
	}
	return &models.Video{StoragePath: key, DurationSeconds: duration}, nil
}
