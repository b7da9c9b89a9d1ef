// internal/handlers/websocket/websocket.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/pkg/response"
	ws "routedesk-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenValidator checks an access token against signature, blacklist and session.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type WebSocketHandler struct {
	hub       *ws.Hub
	validator TokenValidator
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewWebSocketHandler accepts any origin when allowedOrigins is empty.
func NewWebSocketHandler(hub *ws.Hub, validator TokenValidator, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if strings.EqualFold(origin, allowed) {
						return true
					}
				}
				return false
			},
		},
		logger: logger,
	}
}

// HandleConnection authenticates the token and upgrades the request.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		response.Unauthorized(c, "missing authentication token")
		return
	}

	claims, err := h.validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.FromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, &ws.ClientAuth{
		UserID:    claims.UserID,
		Username:  claims.Username,
		SessionID: claims.ID,
		Roles:     claims.Roles,
		Device:    claims.Device,
	})
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// Stats reports connection counts.
func (h *WebSocketHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
	})
}

// extractToken reads the token query parameter, then the Authorization header.
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
