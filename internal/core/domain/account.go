package domain

import "time"

// PasswordHistoryDepth is the number of superseded credentials retained for
// reuse checks. A rotation may not reuse the current credential nor any of
// these entries.
const PasswordHistoryDepth = 5

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                string
	Nickname          string
	Email             string
	PasswordHash      string
	PasswordChangedAt time.Time
	FailedAttempts    int
	LockedUntil       *time.Time
	ResetTokenHash    *string
	ResetTokenExpiry  *time.Time
	CreatedAt         time.Time
	LastLogin         *time.Time
}

// IsLocked reports whether the account is locked at the supplied moment.
// Lock state is derived from locked_until; a timestamp in the past means the
// lock has self-healed and no explicit unlock is required.
func (a Account) IsLocked(at time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(at)
}

// RemainingLock returns how long the lock still holds at the supplied moment,
// zero when the account is not locked.
func (a Account) RemainingLock(at time.Time) time.Duration {
	if !a.IsLocked(at) {
		return 0
	}
	return a.LockedUntil.Sub(at)
}

// CredentialExpired reports whether the password is older than ttl at the
// supplied moment. A non-positive ttl disables expiry.
func (a Account) CredentialExpired(at time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return at.Sub(a.PasswordChangedAt) > ttl
}

// HasPendingReset reports whether a reset token is set and still valid.
func (a Account) HasPendingReset(at time.Time) bool {
	return a.ResetTokenHash != nil && a.ResetTokenExpiry != nil && a.ResetTokenExpiry.After(at)
}

// PasswordHistoryEntry tracks a superseded password hash for reuse prevention.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	ReplacedAt   time.Time
}
