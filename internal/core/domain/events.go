package domain

import "time"

// AccountRegisteredEvent is emitted after a new account row is committed.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Nickname     string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent is emitted after a credential rotation, whether via
// authenticated change or reset confirmation.
type PasswordChangedEvent struct {
	EventID         string
	AccountID       string
	ChangedAt       time.Time
	ChangedBy       string
	Reason          string
	SessionsRevoked int
	Metadata        map[string]any
}

// PasswordResetRequestedEvent is emitted once the reset token has been
// persisted. Downstream consumers deliver the email; a delivery failure does
// not invalidate the token.
type PasswordResetRequestedEvent struct {
	EventID           string
	AccountID         string
	RequestID         string
	RequestedAt       time.Time
	Destination       string
	MaskedDestination string
	IPAddress         *string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// AccountLockedEvent is emitted when repeated failures trip the lockout
// threshold.
type AccountLockedEvent struct {
	EventID     string
	AccountID   string
	LockedAt    time.Time
	LockedUntil time.Time
	Attempts    int
	IPAddress   *string
	Metadata    map[string]any
}

// SessionRevokedEvent is emitted when a server-side session is destroyed
// ahead of its rolling expiry.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	AccountID string
	RevokedAt time.Time
	Reason    string
	Metadata  map[string]any
}
