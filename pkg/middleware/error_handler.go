package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cobrify/stock-service/pkg/errors"
	"github.com/gin-gonic/gin"
)

// APIErrorResponse represents a standardized error response
type APIErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Timestamp string         `json:"timestamp"`
	Path      string         `json:"path"`
}

// ErrorMapper converts a handler error into an AppError
type ErrorMapper func(error) *errors.AppError

// ErrorHandler renders the last error attached to the context
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return ErrorHandlerWithMapper(logger, errors.MapDomainError)
}

// ErrorHandlerWithMapper is ErrorHandler with a custom error mapping
func ErrorHandlerWithMapper(logger *slog.Logger, mapper ErrorMapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := mapper(c.Errors.Last().Err)
		logError(logger, c, appErr)
		c.JSON(appErr.HTTPStatus, newErrorResponse(c, appErr))
	}
}

func newErrorResponse(c *gin.Context, appErr *errors.AppError) APIErrorResponse {
	return APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

func logError(logger *slog.Logger, c *gin.Context, appErr *errors.AppError) {
	level := slog.LevelError
	if appErr.HTTPStatus < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	attrs := []any{
		"code", appErr.Code,
		"message", appErr.Message,
		"status", appErr.HTTPStatus,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"requestId", GetRequestID(c),
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}

	logger.Log(c.Request.Context(), level, "API error", attrs...)
}

// AbortWithError aborts the request with an error
func AbortWithError(c *gin.Context, err error) {
	AbortWithAppError(c, errors.MapDomainError(err))
}

// AbortWithAppError aborts the request with an AppError
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, newErrorResponse(c, appErr))
}
