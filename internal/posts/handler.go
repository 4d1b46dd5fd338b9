package posts

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
)

const (
	maxListLimit = 50
	uploadURLTTL = 2 * time.Hour
)

// Store is the persistence the post handlers need. *Repository implements it.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]models.Post, error)
	GetPublished(ctx context.Context, id uuid.UUID) (*models.Post, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) error
	Update(ctx context.Context, id uuid.UUID, u Update) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageSigner issues upload references for post images. *storage.S3 implements it.
type ImageSigner interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
	PublicObjectURL(bucket, key string) string
}

// Handler serves the public board and its admin endpoints.
type Handler struct {
	store     Store
	sanitizer *Sanitizer
	signer    ImageSigner // nil when storage is not configured
	bucket    string
	logger    *zap.Logger
}

// NewHandler creates a post handler. signer may be nil.
func NewHandler(store Store, signer ImageSigner, bucket string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, sanitizer: NewSanitizer(), signer: signer, bucket: bucket, logger: logger}
}

// PublicList handles GET /posts.
func (h *Handler) PublicList(c *gin.Context) {
	f := ListFilter{PublishedOnly: true, Limit: parseLimit(c.Query("limit"))}
	if cat := models.PostCategory(c.Query("category")); cat.Valid() {
		f.Category = &cat
	}
	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list posts failed", zap.Error(err))
		response.Internal(c, "failed to list posts")
		return
	}
	response.OK(c, gin.H{"posts": list})
}

// parseLimit caps limit at maxListLimit; unparsable or non-positive values mean no limit.
func parseLimit(s string) int {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 1 {
		return 0
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return int(n)
}

// PublicGet handles GET /posts/:id. Views are counted unless increment=false.
func (h *Handler) PublicGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Not found")
		return
	}
	ctx := c.Request.Context()
	post, err := h.store.GetPublished(ctx, id)
	if err == nil && c.Query("increment") != "false" {
		post, err = h.store.IncrementViews(ctx, id)
	}
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Not found")
		return
	}
	if err != nil {
		h.logger.Error("get post failed", zap.String("post_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load post")
		return
	}
	response.OK(c, gin.H{"post": post})
}

// CreateRequest is the body for POST /admin/posts.
type CreateRequest struct {
	Title    string  `json:"title"`
	Content  *string `json:"content"`
	Category string  `json:"category"`
	IsPinned bool    `json:"isPinned"`
}

// UpdateRequest is the body for PATCH /admin/posts/:id.
type UpdateRequest struct {
	Title    *string        `json:"title"`
	Content  optionalString `json:"content"`
	Category *string        `json:"category"`
	IsPinned *bool          `json:"isPinned"`
}

// AdminList handles GET /admin/posts.
func (h *Handler) AdminList(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), ListFilter{})
	if err != nil {
		h.logger.Error("list posts failed", zap.Error(err))
		response.Internal(c, "failed to list posts")
		return
	}
	response.OK(c, gin.H{"posts": list})
}

// Create handles POST /admin/posts.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if req.Title == "" || req.Category == "" {
		response.BadRequest(c, "title and category are required")
		return
	}
	cat := models.PostCategory(req.Category)
	if !cat.Valid() {
		response.BadRequest(c, "Invalid category")
		return
	}
	p := &models.Post{Title: req.Title, Category: cat, IsPinned: req.IsPinned}
	if req.Content != nil {
		clean := h.sanitizer.Sanitize(*req.Content)
		p.Content = &clean
	}
	if err := h.store.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create post failed", zap.Error(err))
		response.Internal(c, "failed to create post")
		return
	}
	response.Created(c, gin.H{"post": p})
}

// Update handles PATCH /admin/posts/:id.
func (h *Handler) Update(c *gin.Context) {
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
	if req.Title == nil && !req.Content.Set && req.Category == nil && req.IsPinned == nil {
		response.BadRequest(c, "No fields to update")
		return
	}
	u := Update{Title: req.Title, IsPinned: req.IsPinned}
	if req.Content.Set {
		u.ContentSet = true
		if req.Content.Value != nil {
			u.Content = h.sanitizer.Sanitize(*req.Content.Value)
		}
	}
	if req.Category != nil {
		cat := models.PostCategory(*req.Category)
		if !cat.Valid() {
			response.BadRequest(c, "Invalid category")
			return
		}
		u.Category = &cat
	}

	post, err := h.store.Update(c.Request.Context(), id, u)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Not found")
		return
	}
	if err != nil {
		h.logger.Error("update post failed", zap.String("post_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to update post")
		return
	}
	response.OK(c, gin.H{"post": post})
}

// Delete handles DELETE /admin/posts/:id.
func (h *Handler) Delete(c *gin.Context) {
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
		h.logger.Error("delete post failed", zap.String("post_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to delete post")
		return
	}
	response.NoContent(c)
}

// UploadURL handles POST /admin/posts/upload-url for inline images.
func (h *Handler) UploadURL(c *gin.Context) {
	if h.bucket == "" || h.signer == nil {
		response.Internal(c, "Storage bucket not configured")
		return
	}
	var req struct {
		FilePath string `json:"filePath"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.FilePath == "" {
		response.BadRequest(c, "filePath is required")
		return
	}
	url, err := h.signer.PresignPut(c.Request.Context(), h.bucket, req.FilePath, "", uploadURLTTL)
	if err != nil {
		h.logger.Error("presign image upload failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}
	response.OK(c, gin.H{
		"uploadUrl": url,
		"path":      req.FilePath,
		"publicUrl": h.signer.PublicObjectURL(h.bucket, req.FilePath),
	})
}
