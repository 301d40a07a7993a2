package middleware

import (
	"net/http"

	"github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/gin-gonic/gin"
)

// Business context keys and headers. Every stock record belongs to exactly
// one business, so tenant scope is a single id.
const (
	ContextKeyBusinessID = "businessId"
	ContextKeyUserID     = "userId"

	HeaderBusinessID = "X-Business-ID"
	HeaderUserID     = "X-User-ID"
)

// BusinessContext reads the business and user headers into the request
// context. Requests without a business id are rejected.
func BusinessContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID := c.GetHeader(HeaderBusinessID)
		if businessID == "" {
			AbortWithAppError(c, errors.NewAppError(
				"MISSING_BUSINESS_CONTEXT",
				"X-Business-ID header is required",
				http.StatusUnauthorized,
			))
			return
		}
		userID := c.GetHeader(HeaderUserID)

		ctx := logging.ContextWithBusinessID(c.Request.Context(), businessID)
		if userID != "" {
			ctx = logging.ContextWithUserID(ctx, userID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Set(ContextKeyBusinessID, businessID)
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// GetBusinessID returns the business id set by BusinessContext
func GetBusinessID(c *gin.Context) string {
	return c.GetString(ContextKeyBusinessID)
}

// GetUserID returns the user id set by BusinessContext, if any
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
