// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/result"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Outcome sends the result of a command. Warnings are still a success at the HTTP level.
func Outcome(c *gin.Context, status int, res *result.Result, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success:  true,
		Message:  res.Summary,
		Data:     data,
		Warnings: res.Warnings,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort first so later handlers never write
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError maps a service error to its HTTP status. Unknown errors become a 500 and
// their text is not exposed.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		Error(c, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, xerrors.ErrForbidden):
		Error(c, http.StatusForbidden, "permission denied", err)
	case errors.Is(err, xerrors.ErrUnauthorized), errors.Is(err, xerrors.ErrSessionExpired):
		Error(c, http.StatusUnauthorized, "authentication required", err)
	case errors.Is(err, xerrors.ErrRateLimited):
		Error(c, http.StatusTooManyRequests, "too many attempts", err)
	case errors.Is(err, xerrors.ErrVisitFinalized), errors.Is(err, xerrors.ErrConflict):
		Error(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, xerrors.ErrInvalidInput), errors.Is(err, xerrors.ErrImportFailed),
		errors.Is(err, xerrors.ErrNoNameColumn):
		Error(c, http.StatusBadRequest, "invalid request", err)
	default:
		Error(c, http.StatusInternalServerError, "internal server error", xerrors.ErrInternal)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
