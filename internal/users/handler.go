package users

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
)

// Store is the persistence the handler needs. *Repository implements it.
type Store interface {
	List(ctx context.Context, status *models.UserStatus) ([]models.UserPublic, error)
	Update(ctx context.Context, id uuid.UUID, status *models.UserStatus, role *models.Role) (models.UserPublic, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpdateRequest is the body for PATCH /admin/users/:id.
type UpdateRequest struct {
	Status *string `json:"status"`
	Role   *string `json:"role"`
}

// Handler serves the admin user endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /admin/users. An unrecognized ?status is ignored.
func (h *Handler) List(c *gin.Context) {
	var filter *models.UserStatus
	if s := models.UserStatus(c.Query("status")); s.Valid() {
		filter = &s
	}
	list, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, gin.H{"users": list})
}

// Update handles PATCH /admin/users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if (req.Status == nil || *req.Status == "") && (req.Role == nil || *req.Role == "") {
		response.BadRequest(c, "status or role is required")
		return
	}
	var status *models.UserStatus
	if req.Status != nil && *req.Status != "" {
		s := models.UserStatus(*req.Status)
		if !s.Valid() {
			response.BadRequest(c, "Invalid status")
			return
		}
		status = &s
	}
	var role *models.Role
	if req.Role != nil && *req.Role != "" {
		r := models.Role(*req.Role)
		if !r.Valid() {
			response.BadRequest(c, "Invalid role")
			return
		}
		role = &r
	}

	user, err := h.store.Update(c.Request.Context(), id, status, role)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "User not found")
		return
	}
	if err != nil {
		h.logger.Error("update user failed", zap.String("user_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to update user")
		return
	}
	response.OK(c, gin.H{"user": user})
}

// Delete handles DELETE /admin/users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return
	}
	err = h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "User not found")
		return
	}
	if err != nil {
		h.logger.Error("delete user failed", zap.String("user_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to delete user")
		return
	}
	response.NoContent(c)
}
