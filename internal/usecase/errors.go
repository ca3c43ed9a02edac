package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is temporarily locked after repeated failures.
	ErrAccountLocked = errors.New("account locked")
	// ErrCredentialExpired indicates the password aged past the expiry policy and must be reset.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrUnauthenticated indicates the request carried no valid token or session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNicknameTaken indicates the requested nickname is already registered.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrEmailTaken indicates the requested email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrPasswordReuse indicates the new password matches the current or a recent credential.
	ErrPasswordReuse = errors.New("password was used recently")
	// ErrCurrentPasswordInvalid indicates the provided current password is incorrect.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
	// ErrResetTokenInvalid indicates the supplied reset token is unknown, expired, or already used.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	// ErrSessionNotFound indicates the session is missing or has idled out.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfessionNotFound indicates the requested confession does not exist.
	ErrConfessionNotFound = errors.New("confession not found")
	// ErrNotOwner indicates the caller does not own the targeted resource.
	ErrNotOwner = errors.New("resource not owned by caller")
)

// InvalidCredentialsError is returned on a failed password check and carries
// how many attempts remain before the account locks.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	if e.RemainingAttempts == 1 {
		return "invalid credentials; 1 attempt remaining"
	}
	return fmt.Sprintf("invalid credentials; %d attempts remaining", e.RemainingAttempts)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidCredentials).
func (e *InvalidCredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}

// AccountLockedError is returned while the lockout window is in effect.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked; retry in %s", e.RetryAfter.Round(time.Second))
}

// Unwrap lets callers match with errors.Is(err, ErrAccountLocked).
func (e *AccountLockedError) Unwrap() error {
	return ErrAccountLocked
}

// NicknameTakenError is returned on a nickname conflict together with
// available alternatives.
type NicknameTakenError struct {
	Nickname    string
	Suggestions []string
}

func (e *NicknameTakenError) Error() string {
	return fmt.Sprintf("nickname %q already taken", e.Nickname)
}

// Unwrap lets callers match with errors.Is(err, ErrNicknameTaken).
func (e *NicknameTakenError) Unwrap() error {
	return ErrNicknameTaken
}

// RateLimitExceededError is returned when a sliding-window limit trips.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s; retry in %s", e.Scope, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

func metadataCopy(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func stringPtr(value string) *string {
	return &value
}

func stringPtrOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return stringPtr(trimmed)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
