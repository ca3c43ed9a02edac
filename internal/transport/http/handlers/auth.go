package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/infra/config"
	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

const (
	loginRateLimitProblemType  = "https://api.confession-platform.example.com/errors/rate-limit-exceeded"
	loginRateLimitProblemTitle = "Rate Limit Exceeded"
)

// AuthHandler exposes login and logout endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	sessions  *usecase.SessionService
	sessionCf config.SessionSettings
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, sessions *usecase.SessionService, sessionCfg config.SessionSettings) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		sessions:  sessions,
		sessionCf: sessionCfg,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireIdentity gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/logout", requireIdentity, h.logout)
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Validates the supplied credentials, returning a bearer token and session cookie on success.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse "Successfully authenticated"
// @Failure 400 {object} ErrorResponse "Invalid payload or expired credential"
// @Failure 401 {object} InvalidCredentialsResponse "Invalid credentials"
// @Failure 423 {object} AccountLockedResponse "Account locked"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		IP:        strings.TrimSpace(c.ClientIP()),
		UserAgent: strings.TrimSpace(c.Request.UserAgent()),
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	h.setSessionCookie(c, result.Session.ID)

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresIn:   h.tokenExpiresIn(),
		Account:     newAccountSummary(result.Account),
		Session:     newSessionSummary(*result.Session),
	})
}

// Logout godoc
// @Summary Logout the current session
// @Description Revokes the caller's server-side session and clears the session cookie.
// @Tags Authentication
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := ""
	if identity.Session != nil {
		sessionID = identity.Session.ID
	} else if cookie, err := c.Cookie(h.sessionCf.CookieName); err == nil {
		sessionID = strings.TrimSpace(cookie)
	}

	if sessionID != "" {
		if err := h.auth.Logout(c.Request.Context(), sessionID, identity.AccountID); err != nil {
			if !errors.Is(err, usecase.ErrSessionNotFound) {
				c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
				return
			}
		}
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var lockedErr *usecase.AccountLockedError
	if errors.As(err, &lockedErr) {
		minutes := int(math.Ceil(lockedErr.RetryAfter.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		c.JSON(http.StatusLocked, AccountLockedResponse{
			Error:             fmt.Sprintf("account locked, try again in %d minutes", minutes),
			TraceID:           middleware.GetTraceID(c),
			RetryAfterMinutes: minutes,
		})
		return
	}

	var credsErr *usecase.InvalidCredentialsError
	if errors.As(err, &credsErr) {
		remaining := credsErr.RemainingAttempts
		c.JSON(http.StatusUnauthorized, InvalidCredentialsResponse{
			Error:             "invalid credentials",
			TraceID:           middleware.GetTraceID(c),
			RemainingAttempts: &remaining,
		})
		return
	}

	var rateErr *usecase.RateLimitExceededError
	if errors.As(err, &rateErr) {
		respondRateLimitExceeded(c, rateErr)
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, InvalidCredentialsResponse{
			Error:   "invalid credentials",
			TraceID: middleware.GetTraceID(c),
		})
	case errors.Is(err, usecase.ErrCredentialExpired):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password expired, reset required"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sessionID string) {
	name := h.sessionCf.CookieName
	if name == "" || sessionID == "" {
		return
	}

	maxAge := int(h.idleTTL() / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, sessionID, maxAge, "/", "", false, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	name := h.sessionCf.CookieName
	if name == "" {
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", false, true)
}

func (h *AuthHandler) idleTTL() time.Duration {
	if h.sessions != nil && h.sessions.IdleTTL() > 0 {
		return h.sessions.IdleTTL()
	}
	if h.sessionCf.IdleTTL > 0 {
		return h.sessionCf.IdleTTL
	}
	return 5 * time.Minute
}

func (h *AuthHandler) tokenExpiresIn() int {
	ttl := 24 * time.Hour
	if h.auth != nil {
		if issuerTTL := h.auth.TokenTTL(); issuerTTL > 0 {
			ttl = issuerTTL
		}
	}
	return int(ttl / time.Second)
}

func respondRateLimitExceeded(c *gin.Context, rateErr *usecase.RateLimitExceededError) {
	retryAfter := int(rateErr.RetryAfter / time.Second)
	if rateErr.RetryAfter%time.Second != 0 {
		retryAfter++
	}
	if retryAfter < 0 {
		retryAfter = 0
	}

	detail := "Too many attempts. Try again later."
	if rateErr.RetryAfter > 0 {
		detail = fmt.Sprintf("Too many attempts. Try again in %d seconds.", retryAfter)
	}

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := middleware.ProblemDetails{
		Type:       loginRateLimitProblemType,
		Title:      loginRateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Instance:   instance,
		RetryAfter: retryAfter,
		TraceID:    middleware.GetTraceID(c),
	}

	c.JSON(http.StatusTooManyRequests, problem)
}
