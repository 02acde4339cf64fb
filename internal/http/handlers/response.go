// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, the mapping from service errors to status codes, conditional GET
// support and the silent 499 used for abandoned requests.
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "item_not_found",
//	  "message": "item not found"
//	}
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mts-Potter/literary-forge/internal/http/middleware"
	"github.com/Mts-Potter/literary-forge/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code"`
	// Human-readable message (safe to show to users)
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

// Fail is the exported variant of fail() for router-level responses.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFor maps a service error onto the envelope. Validation messages are
// returned verbatim; every other message is fixed so storage and provider
// details never reach the client.
func failFor(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	case errors.Is(err, services.ErrItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeItemNotFound, "item not found")
	case errors.Is(err, services.ErrQuotaExceeded):
		fail(c, http.StatusTooManyRequests, ErrCodeQuotaExceeded, "daily grading quota exceeded")
	case errors.Is(err, services.ErrGraderUnavailable):
		c.Header("Retry-After", "30")
		fail(c, http.StatusServiceUnavailable, ErrCodeGraderUnavailable, "grading service unavailable, try again later")
	case errors.Is(err, services.ErrGraderFormat):
		fail(c, http.StatusServiceUnavailable, ErrCodeGraderFormat, "grading service returned an unusable answer, try again later")
	case errors.Is(err, services.ErrPersistence):
		middleware.LoggerFrom(c).Error().Err(err).Msg("persistence failure")
		fail(c, http.StatusInternalServerError, ErrCodePersistence, "could not save your progress")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unclassified failure")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// clientClosed records that the caller went away. No body is written.
func clientClosed(c *gin.Context) {
	middleware.LoggerFrom(c).Debug().Msg("request cancelled by client")
	c.AbortWithStatus(middleware.StatusClientClosed)
}

// weakETag builds W/"<kind>:<user>:<count>:<unix-nanos>" from a collection's
// size and newest timestamp.
func weakETag(kind, userID string, count int64, newest *time.Time) string {
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, userID, count, ts)
}

// notModified sets ETag and answers 304 when If-None-Match matches it.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
