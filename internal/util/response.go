package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse writes a {"success": true, ...} body. Extra fields are
// merged into the envelope so handlers control the exact response shape
// ("comments", "comment", "posts", ...).
func SuccessResponse(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// ErrorResponse writes an {"error": message} body with the given status.
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// BadRequest writes a 400 error response.
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

// NotFound writes a 404 error response.
func NotFound(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}
