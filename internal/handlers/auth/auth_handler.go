// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"
	"strings"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/middleware"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/response"
	authUsecase "routedesk-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	clock       clock.Clock
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, clk clock.Clock, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		clock:       clk,
		logger:      logger,
	}
}

// ========== Session ==========

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req, h.clock.Now())
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", strings.ToLower(req.Username)),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// Logout ends the current session (requires auth).
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("logout failed",
			zap.Int64("user_id", claims.UserID),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	info, landing, err := h.authService.Me(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", gin.H{
		"user":    info,
		"landing": landing,
	})
}

// ========== Users (manager only) ==========

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req auth.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	info, err := h.authService.CreateUser(c.Request.Context(), &req, middleware.MustGetUserID(c), h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "user created", info)
}

// ListUsers lists accounts, optionally of one role (?role=delivery_agent).
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "users retrieved", gin.H{
		"users": users,
		"count": len(users),
	})
}
