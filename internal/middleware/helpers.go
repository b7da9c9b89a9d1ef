// internal/middleware/helpers.go
package middleware

import (
	"slices"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MustGetUserID panics outside routes guarded by Auth.
func MustGetUserID(c *gin.Context) int64 {
	id, exists := GetUserID(c)
	if !exists {
		panic("user_id not found in context")
	}
	return id
}

func GetRoles(c *gin.Context) []string {
	v, exists := c.Get(ctxRoles)
	if !exists {
		return []string{}
	}
	roles, ok := v.([]string)
	if !ok {
		return []string{}
	}
	return roles
}

func HasRole(c *gin.Context, role string) bool {
	return slices.Contains(GetRoles(c), role)
}

func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// GetActor builds the identity the services act on. Managers are elevated.
func GetActor(c *gin.Context) auth.Actor {
	return auth.Actor{
		UserID:   MustGetUserID(c),
		Username: c.GetString(ctxUsername),
		Elevated: HasRole(c, auth.RoleManager),
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
