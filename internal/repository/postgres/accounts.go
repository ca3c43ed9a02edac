package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/repository"
)

const uniqueViolationCode = "23505"

var accountColumns = []string{
	"id",
	"nickname",
	"email",
	"password_hash",
	"password_changed_at",
	"failed_attempts",
	"locked_until",
	"reset_token_hash",
	"reset_token_expiry",
	"created_at",
	"last_login",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Nickname,
			account.Email,
			account.PasswordHash,
			account.PasswordChangedAt,
			account.FailedAttempts,
			account.LockedUntil,
			account.ResetTokenHash,
			account.ResetTokenExpiry,
			account.CreatedAt,
			account.LastLogin,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "account")
}

// GetByEmail retrieves an account by email address.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))}, "account by email")
}

// GetByNickname retrieves an account by nickname.
func (r *AccountRepository) GetByNickname(ctx context.Context, nickname string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"nickname": nickname}, "account by nickname")
}

// GetByResetTokenHash retrieves the account holding the given reset token hash.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"reset_token_hash": tokenHash}, "account by reset token")
}

func (r *AccountRepository) getOne(ctx context.Context, pred squirrel.Eq, label string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", label, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Nickname,
		&account.Email,
		&account.PasswordHash,
		&account.PasswordChangedAt,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.ResetTokenHash,
		&account.ResetTokenExpiry,
		&account.CreatedAt,
		&account.LastLogin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", label, err)
	}

	return &account, nil
}

// UpdateProfile modifies an account's nickname and email.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id, nickname, email string) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("nickname", nickname).
		Set("email", strings.ToLower(strings.TrimSpace(email))).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordLoginFailure increments the failure counter and applies the lockout
// timestamp once the threshold is reached, in a single statement so that
// concurrent failures cannot undercount each other.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (*port.FailureRecord, error) {
	stmt := `
		UPDATE accounts
		   SET failed_attempts = failed_attempts + 1,
		       locked_until = CASE
		           WHEN failed_attempts + 1 >= $2 THEN $3::timestamptz
		           ELSE locked_until
		       END
		 WHERE id = $1
		RETURNING failed_attempts, locked_until
	`

	row := r.exec.QueryRow(ctx, stmt, id, threshold, now.Add(lockFor))

	var record port.FailureRecord
	if err := row.Scan(&record.FailedAttempts, &record.LockedUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("record login failure: %w", err)
	}

	return &record, nil
}

// RecordLoginSuccess resets the failure counter, clears a stale lock, and
// stamps the login time.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string, now time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Set("last_login", now).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login success sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the account's password hash and change timestamp.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetResetToken stores a hashed reset token with its expiry, replacing any
// previous pending token.
func (r *AccountRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("reset_token_hash", tokenHash).
		Set("reset_token_expiry", expiresAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set reset token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ConsumeResetToken clears the stored reset token only when the supplied hash
// is still the current one. The guard in the WHERE clause makes the token
// single use even under concurrent confirmations.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id string, tokenHash string) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("reset_token_hash", nil).
		Set("reset_token_expiry", nil).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"reset_token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume reset token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListPasswordHistory retrieves the most recent superseded hashes for an account.
func (r *AccountRepository) ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	trimmedID := strings.TrimSpace(accountID)
	if trimmedID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	builder := r.builder.Select("id", "account_id", "password_hash", "replaced_at").
		From("password_history").
		Where(squirrel.Eq{"account_id": trimmedID}).
		OrderBy("replaced_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.PasswordHistoryEntry, 0)
	for rows.Next() {
		var record domain.PasswordHistoryEntry
		if err := rows.Scan(&record.ID, &record.AccountID, &record.PasswordHash, &record.ReplacedAt); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		history = append(history, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return history, nil
}

// AddPasswordHistory inserts a superseded hash into the history table.
func (r *AccountRepository) AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	accountID := strings.TrimSpace(entry.AccountID)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(entry.PasswordHash) == "" {
		return fmt.Errorf("password hash is required")
	}

	replacedAt := entry.ReplacedAt
	if replacedAt.IsZero() {
		replacedAt = time.Now().UTC()
	}

	builder := r.builder.Insert("password_history")
	if entry.ID != "" {
		builder = builder.Columns("id", "account_id", "password_hash", "replaced_at").
			Values(entry.ID, accountID, entry.PasswordHash, replacedAt)
	} else {
		builder = builder.Columns("account_id", "password_hash", "replaced_at").
			Values(accountID, entry.PasswordHash, replacedAt)
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	return nil
}

// TrimPasswordHistory ensures only the most recent maxEntries hashes are retained.
func (r *AccountRepository) TrimPasswordHistory(ctx context.Context, accountID string, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}

	trimmedID := strings.TrimSpace(accountID)
	if trimmedID == "" {
		return fmt.Errorf("account id is required")
	}

	stmt := `
		DELETE FROM password_history
		 WHERE account_id = $1
		   AND id NOT IN (
				SELECT id
				  FROM password_history
				 WHERE account_id = $1
				 ORDER BY replaced_at DESC
				 LIMIT $2
		   )
	`

	if _, err := r.exec.Exec(ctx, stmt, trimmedID, maxEntries); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
