package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/confession-platform-api/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID        string     `json:"id"`
	Nickname  string     `json:"nickname"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// SignupRequest defines the account registration payload.
type SignupRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// SignupResponse is returned after a successful registration.
type SignupResponse struct {
	Account AccountSummary `json:"account"`
}

// NicknameConflictResponse carries alternative nicknames when the requested
// one is taken.
type NicknameConflictResponse struct {
	Error       string   `json:"error"`
	TraceID     string   `json:"trace_id,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionSummary provides a compact view of session context in login responses.
type SessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Account     AccountSummary `json:"account"`
	Session     SessionSummary `json:"session"`
}

// InvalidCredentialsResponse is returned for failed credential checks. The
// remaining attempt count is present only once the account was identified.
type InvalidCredentialsResponse struct {
	Error             string `json:"error"`
	TraceID           string `json:"trace_id,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

// AccountLockedResponse is returned while an account lock is in force.
type AccountLockedResponse struct {
	Error             string `json:"error"`
	TraceID           string `json:"trace_id,omitempty"`
	RetryAfterMinutes int    `json:"retry_after_minutes"`
}

// PasswordChangeRequest captures a password change request body.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// PasswordResetRequest represents a password reset initiation payload.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetResponse acknowledges a reset request. The body is identical
// whether or not the email matched an account.
type PasswordResetResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// PasswordResetConfirmRequest captures a password reset confirmation payload.
type PasswordResetConfirmRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// ProfileResponse returns the caller's account profile.
type ProfileResponse struct {
	Account AccountSummary `json:"account"`
}

// ProfileUpdateRequest captures profile field edits.
type ProfileUpdateRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

// ConfessionRequest defines the payload for creating or updating a confession.
type ConfessionRequest struct {
	Title     string  `json:"title" binding:"required"`
	Content   string  `json:"content" binding:"required"`
	Category  string  `json:"category"`
	ImageURL  *string `json:"image_url,omitempty"`
	Anonymous bool    `json:"anonymous"`
}

// ConfessionPayload describes a confession view in API responses. The author
// nickname is withheld for anonymous posts.
type ConfessionPayload struct {
	ID             string    `json:"id"`
	AuthorNickname *string   `json:"author_nickname,omitempty"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Category       string    `json:"category,omitempty"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Anonymous      bool      `json:"anonymous"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConfessionListResponse wraps a paginated confession listing.
type ConfessionListResponse struct {
	Confessions []ConfessionPayload `json:"confessions"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ContactRequest captures a contact form submission.
type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newAccountSummary converts a domain account to an API summary.
func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:        account.ID,
		Nickname:  account.Nickname,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
		LastLogin: account.LastLogin,
	}
}

func newSessionSummary(session domain.Session) SessionSummary {
	return SessionSummary{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		LastSeen:  session.LastSeen,
		ExpiresAt: session.ExpiresAt,
	}
}

// newConfessionPayload converts a domain confession to an API payload.
func newConfessionPayload(confession domain.Confession) ConfessionPayload {
	payload := ConfessionPayload{
		ID:        confession.ID,
		Title:     confession.Title,
		Content:   confession.Content,
		Category:  confession.Category,
		ImageURL:  confession.ImageURL,
		Anonymous: confession.Anonymous,
		CreatedAt: confession.CreatedAt,
		UpdatedAt: confession.UpdatedAt,
	}

	if !confession.Anonymous && confession.AuthorNickname != "" {
		nickname := confession.AuthorNickname
		payload.AuthorNickname = &nickname
	}

	return payload
}
