package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/usecase"
)

// ErrorResponse is the uniform error payload emitted by middleware rejections.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		TraceID: GetTraceID(c),
	}
}

// RequireIdentity admits requests carrying a valid bearer token or an active
// session cookie. Either channel is sufficient on its own. When the session
// channel validates, the cookie lifetime is re-extended so the browser window
// rolls together with the server-side record.
func RequireIdentity(auth *usecase.AuthService, cookieName string, idleTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, newErrorResponse(c, "authentication service unavailable"))
			return
		}

		input := usecase.AuthorizeInput{
			BearerToken: bearerToken(c),
			IP:          c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
		}

		if cookieName != "" {
			if sessionID, err := c.Cookie(cookieName); err == nil {
				input.SessionID = strings.TrimSpace(sessionID)
			}
		}

		identity, err := auth.Authorize(c.Request.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrCredentialExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "password expired, reset required"))
			case errors.Is(err, usecase.ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "authentication required"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			}
			return
		}

		if identity.Session != nil && cookieName != "" {
			maxAge := int(idleTTL / time.Second)
			if maxAge > 0 {
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(cookieName, identity.Session.ID, maxAge, "/", "", false, true)
			}
		}

		c.Set(IdentityKey, identity)
		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = identity.AccountID
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
