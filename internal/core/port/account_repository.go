package port

import (
	"context"
	"time"

	"github.com/arklim/confession-platform-api/internal/core/domain"
)

// FailureRecord is the account state returned by an atomic failure increment.
type FailureRecord struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// AccountRepository exposes persistence behavior for accounts.
//
// RecordLoginFailure and ConsumeResetToken must be implemented as single
// atomic statements: concurrent failed logins for the same account must not
// undercount attempts, and a reset token must be consumable exactly once.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByNickname(ctx context.Context, nickname string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id, nickname, email string) error

	// RecordLoginFailure increments failed_attempts and, when the updated
	// count reaches threshold, sets locked_until = now + lockFor, all in one
	// read-modify-write. It returns the post-increment state.
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (*FailureRecord, error)

	// RecordLoginSuccess resets failed_attempts, clears locked_until, and
	// stamps last_login.
	RecordLoginSuccess(ctx context.Context, id string, now time.Time) error

	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error

	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)

	// ConsumeResetToken clears the reset token fields only if tokenHash is
	// still the stored value; a second consumption observes ErrNotFound.
	ConsumeResetToken(ctx context.Context, id string, tokenHash string) error

	ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error)
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error
	TrimPasswordHistory(ctx context.Context, accountID string, maxEntries int) error
}
