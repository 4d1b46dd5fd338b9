package encoding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/internal/middleware"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
	"github.com/socionet/backend/pkg/storage"
)

const (
	watchInterval     = time.Second
	watchWriteTimeout = 5 * time.Second
)

// flexBool accepts a JSON boolean or the strings "true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = flexBool(strings.EqualFold(strings.TrimSpace(s), "true"))
	return nil
}

// SubmitRequest is the body for POST /admin/videos/encode.
type SubmitRequest struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	RequiredRole string   `json:"requiredRole"`
	IsPublished  flexBool `json:"isPublished"`
	StoragePath  string   `json:"storagePath"`
}

// Handler serves the encode submission and status endpoints.
type Handler struct {
	registry   Registry
	dispatcher Dispatcher
	ready      func() error
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewHandler creates the handler. ready is checked before any job is created
// and returns ErrNotConfigured when the deployment cannot encode.
func NewHandler(registry Registry, dispatcher Dispatcher, ready func() error, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ready == nil {
		ready = func() error { return nil }
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		registry:   registry,
		dispatcher: dispatcher,
		ready:      ready,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// Submit handles POST /admin/videos/encode. It answers 202 with the job id
// and leaves the work to the dispatcher.
func (h *Handler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.ready(); err != nil {
		h.logger.Error("encode submission refused", zap.Error(err))
		response.Internal(c, notConfiguredMessage(err))
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.StoragePath = strings.TrimSpace(req.StoragePath)
	if req.Title == "" || req.RequiredRole == "" || req.StoragePath == "" {
		response.BadRequest(c, "title, requiredRole, storagePath are required")
		return
	}
	role := models.Role(req.RequiredRole)
	if !role.Valid() {
		response.BadRequest(c, "Invalid requiredRole")
		return
	}
	if !storage.IsVideoKey(req.StoragePath) {
		response.BadRequest(c, "Invalid storagePath")
		return
	}
	uploader, _ := middleware.UserID(c)

	id := uuid.New().String()
	if _, err := h.registry.Create(ctx, id); err != nil {
		h.logger.Error("create encode job failed", zap.Error(err))
		response.Internal(c, "Failed to create encode job")
		return
	}
	err := h.dispatcher.Dispatch(ctx, Request{
		JobID:        id,
		Title:        req.Title,
		Description:  req.Description,
		RequiredRole: role,
		IsPublished:  bool(req.IsPublished),
		StoragePath:  req.StoragePath,
		UploaderID:   uploader,
	})
	if err != nil {
		if delErr := h.registry.ScheduleDeletion(context.WithoutCancel(ctx), id, 0); delErr != nil {
			h.logger.Warn("discard rejected job failed", zap.String("job_id", id), zap.Error(delErr))
		}
		if errors.Is(err, ErrSaturated) || errors.Is(err, ErrPoolClosed) {
			response.ServiceUnavailable(c, "Encoding queue is full, try again later")
			return
		}
		h.logger.Error("dispatch encode job failed", zap.String("job_id", id), zap.Error(err))
		response.Internal(c, "Failed to queue encode job")
		return
	}
	h.logger.Info("encode job accepted", zap.String("job_id", id), zap.String("storage_path", req.StoragePath))
	response.Accepted(c, gin.H{"jobId": id})
}

// Status handles GET /admin/videos/encode/:id.
func (h *Handler) Status(c *gin.Context) {
	response.NoStore(c)
	job, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrJobNotFound) {
		response.NotFound(c, "Job not found")
		return
	}
	if err != nil {
		h.logger.Error("get encode job failed", zap.Error(err))
		response.Internal(c, "Failed to load job")
		return
	}
	response.OK(c, gin.H{"job": job})
}

// Watch handles GET /admin/videos/encode/:id/watch. It pushes a {job} frame
// every second and closes after a terminal snapshot or once the job is gone.
func (h *Handler) Watch(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.registry.Get(c.Request.Context(), id); err != nil {
		response.NoStore(c)
		if errors.Is(err, ErrJobNotFound) {
			response.NotFound(c, "Job not found")
			return
		}
		response.Internal(c, "Failed to load job")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// Drain client frames so close and ping control messages are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		job, err := h.registry.Get(ctx, id)
		var frame interface{}
		final := false
		switch {
		case errors.Is(err, ErrJobNotFound):
			frame, final = response.ErrorBody{Message: "Job not found"}, true
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			frame, final = response.ErrorBody{Message: "Failed to load job"}, true
		default:
			frame, final = gin.H{"job": job}, job.Status.Terminal()
		}
		_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
		if final {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(watchWriteTimeout))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func notConfiguredMessage(err error) string {
	switch {
	case errors.Is(err, ErrStorageNotConfigured):
		return "Storage bucket not configured"
	case errors.Is(err, media.ErrProbeUnavailable):
		return media.ErrProbeUnavailable.Error()
	case errors.Is(err, media.ErrEncodeUnavailable):
		return media.ErrEncodeUnavailable.Error()
	}
	return "Encoding is not configured"
}
