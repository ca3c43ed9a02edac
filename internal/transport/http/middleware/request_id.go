package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/confession-platform-api/internal/infra/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	// Inbound ids longer than this are replaced rather than echoed back.
	maxRequestIDLength = 64
)

// RequestID echoes or assigns a correlation id, storing it on the request
// context under logger.RequestIDKey so log lines can pick it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
