package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"routedesk-service/internal/domain/auth"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator map[string]*jwt.Claims

func (s stubValidator) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, xerrors.ErrUnauthorized
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := stubValidator{
		"manager-token": {UserID: 1, Username: "boss", Roles: []string{auth.RoleManager}},
		"driver-token":  {UserID: 7, Username: "dave", Roles: []string{auth.RoleDeliveryAgent}},
	}
	m := NewAuthMiddleware(validator)

	r := gin.New()
	r.Use(RequestID(), RecoveryMiddleware(zap.NewNop()))
	r.GET("/actor", m.Auth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, GetActor(c))
	})
	r.GET("/admin", append(m.ManagerOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine()

	w := do(r, "/actor", "driver-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"UserID":7,"Username":"dave","Elevated":false}`, w.Body.String())

	w = do(r, "/actor", "manager-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Elevated":true`)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/actor", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/actor", "forged").Code)
}

func TestManagerOnly(t *testing.T) {
	r := newEngine()

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", "manager-token").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "driver-token").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", "").Code)
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := newEngine()

	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}
