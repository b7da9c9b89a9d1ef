// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxJTI      = "jti"
	ctxRoles    = "roles"
	ctxClaims   = "claims"
)

// TokenValidator is satisfied by the auth service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Auth validates the bearer token and stores the caller's identity in the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxRoles, claims.Roles)
		c.Set(ctxClaims, claims)

		c.Next()
	}
}

// RequireRole lets through callers holding at least one of roles. Use after Auth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoles := GetRoles(c)
		for _, role := range roles {
			if slices.Contains(userRoles, role) {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "insufficient permissions",
			errors.New("user does not have required role"),
			map[string]interface{}{"required_roles": roles},
		)
	}
}

// ManagerOnly returns Auth followed by the manager role check.
func (m *AuthMiddleware) ManagerOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(auth.RoleManager),
	}
}

// extractToken reads a Bearer Authorization header.
func extractToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
