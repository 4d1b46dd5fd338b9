package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/response"
	"github.com/socionet/backend/pkg/utils"
)

// ContextClaims is the gin context key for the verified *Claims.
const ContextClaims = "auth_claims"

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserStore is the persistence the handler needs. *Repository implements it.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, p CreateUserParams) (*models.User, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users        UserStore
	jwt          *JWTService
	cookieSecure bool
	logger       *zap.Logger
}

// NewHandler creates an auth handler. cookieSecure marks the session cookie
// Secure with SameSite=None for cross-site frontends.
func NewHandler(users UserStore, jwt *JWTService, cookieSecure bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, cookieSecure: cookieSecure, logger: logger}
}

// Register handles POST /auth/register. New accounts wait for admin approval.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.Role == "" {
		response.BadRequest(c, "Email, password, and role are required")
		return
	}
	role := models.Role(req.Role)
	if !role.SelfAssignable() {
		response.BadRequest(c, "Invalid role")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.users.Create(c.Request.Context(), CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         role,
		Status:       models.StatusPending,
	})
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, "Email already in use")
		return
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	response.Created(c, gin.H{
		"message": "Registration submitted for approval",
		"user":    user.ToPublic(),
	})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		response.BadRequest(c, "Email and password are required")
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("load user failed", zap.Error(err))
		}
		response.Unauthorized(c, "Invalid credentials")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "Invalid credentials")
		return
	}
	if user.Status != models.StatusApproved {
		response.Forbidden(c, "Account not approved")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.setCookie(c, token, int(h.jwt.TTL().Seconds()))
	response.OK(c, gin.H{"user": user.ToPublic(), "token": token})
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	response.NoContent(c)
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthorized(c, "Missing token")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, "User not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic()})
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(CookieName, value, maxAge, "/", "", h.cookieSecure, true)
}

// ClaimsFrom returns the claims the auth middleware stored on c.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok && claims != nil
}
