package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/confession-platform-api/internal/usecase"
)

// TraceIDHeader carries the caller-supplied trace id, echoed back on the response.
const TraceIDHeader = "X-Trace-ID"

// Gin context keys set by EnrichContext and RequireIdentity.
const (
	TraceIDKey        = "trace_id"
	IdentityKey       = "identity"
	requestContextKey = "request_context"
)

// RequestContext carries the per-request metadata handlers attach to
// audit events and published messages.
type RequestContext struct {
	TraceID   string
	AccountID string
	IP        string
	UserAgent string
}

// EnrichContext assigns every request a trace id and records the client
// address and user agent for downstream handlers.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace id assigned by EnrichContext, or "" when the
// middleware did not run.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetRequestContext returns the request metadata recorded by EnrichContext.
// A zero-value RequestContext is returned when the middleware did not run,
// so callers never need a nil check.
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, ok := c.Value(requestContextKey).(*RequestContext); ok && reqCtx != nil {
		return reqCtx
	}
	return &RequestContext{}
}

// GetIdentity retrieves the authenticated identity stored by RequireIdentity.
func GetIdentity(c *gin.Context) (*usecase.Identity, bool) {
	identity, ok := c.Value(IdentityKey).(*usecase.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// GetAuthenticatedAccountID is a convenience accessor over GetIdentity.
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	identity, ok := GetIdentity(c)
	if !ok || identity.AccountID == "" {
		return "", false
	}
	return identity.AccountID, true
}
