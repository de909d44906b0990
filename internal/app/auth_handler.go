package app

import (
	"errors"
	"strings"

	"marginalia/internal/config"
	"marginalia/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// Login exchanges the moderator password for a session token
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			util.BadRequest(c, "password is required")
			return
		}
		util.BadRequest(c, "invalid request body")
		return
	}

	if h.cfg.ModeratorPasswordHash == "" {
		util.Unauthorized(c, "moderation is not configured")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.ModeratorPasswordHash), []byte(req.Password)); err != nil {
		util.Unauthorized(c, "invalid credentials")
		return
	}

	token, err := util.GenerateToken("moderator", h.cfg.JWTSecret)
	if err != nil {
		util.ErrorResponse(c, 500, "failed to issue token")
		return
	}

	util.SuccessResponse(c, 200, gin.H{"token": token})
}

// AuthMiddleware validates the moderator token on protected routes.
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(parts[1], h.cfg.JWTSecret)
		if err != nil {
			util.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("role", claims.Role)
		c.Next()
	}
}
