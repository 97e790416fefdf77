// Package apierror renders error responses in the JSON shape Turborepo
// clients expect: {"statusCode":401,"error":"Unauthorized","message":"..."}.
package apierror

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the JSON error payload.
type Body struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// New builds the payload for status with the given message.
func New(status int, message string) Body {
	return Body{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	}
}

// Abort writes the error response and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, New(status, message))
}
