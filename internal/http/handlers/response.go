// Package handlers provides the HTTP handler implementations for the relay.
//
// Conventions:
//   - Error responses use ErrorResponse with a stable machine-readable code.
//   - fail() centralizes error formatting and logs 5xx with request context.
//   - The webhook endpoints deviate from the envelope where the provider
//     contract dictates the body shape (raw challenge echo, {"success":...}).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasunw/whatsapp-relay/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by API endpoints.
type ErrorResponse struct {
	// RequestID correlates server logs and client errors.
	RequestID string `json:"request_id,omitempty"`
	// Code is a stable machine-readable string (see errors.go).
	Code string `json:"code"`
	// Message is human-readable and safe to show to users.
	Message string `json:"message"`
}

// fail aborts the request with a structured error. Server errors (>=500) are
// logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, for router-level handlers such as
// NoRoute and NoMethod.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
