package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/infra/config"
	"github.com/arklim/confession-platform-api/internal/infra/logger"
	"github.com/arklim/confession-platform-api/internal/infra/security"
	"github.com/arklim/confession-platform-api/internal/repository"
)

const (
	resetRateLimitScope  = "password_reset"
	passwordChangeReason = "password_change"
	passwordResetReason  = "password_reset"

	resetTokenBytes = 32
)

// ChangePasswordInput captures an authenticated password change request.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
	IP              string
	UserAgent       string
}

// RequestResetInput captures a password reset initiation.
type RequestResetInput struct {
	Email     string
	IP        string
	UserAgent string
}

// ResetRequestResult describes the generated reset artifact. The HTTP
// response stays generic regardless of whether a token was actually issued;
// the artifact only feeds the out-of-band dispatch path.
type ResetRequestResult struct {
	AccountID         string
	RequestID         string
	Token             string
	Destination       string
	MaskedDestination string
	ExpiresAt         time.Time
	// TokenIssued is false when the email matched no account. Callers must
	// not let this difference reach the HTTP response.
	TokenIssued bool
}

// ConfirmResetInput carries the payload to finalize a password reset.
type ConfirmResetInput struct {
	Token       string
	NewPassword string
	IP          string
	UserAgent   string
}

// PasswordService coordinates credential rotation: authenticated change,
// reset initiation, and reset confirmation.
type PasswordService struct {
	cfg        *config.AppConfig
	accounts   port.AccountRepository
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	validator  *security.PasswordValidator
	metrics    SecurityMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordService constructs a PasswordService.
func NewPasswordService(cfg *config.AppConfig, accounts port.AccountRepository, rateLimits port.RateLimitStore, events port.EventPublisher, validator *security.PasswordValidator, log *zap.Logger) *PasswordService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		cfg:        cfg,
		accounts:   accounts,
		rateLimits: rateLimits,
		events:     events,
		validator:  validator,
		metrics:    nopMetrics{},
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics injects security counters.
func (s *PasswordService) WithMetrics(metrics SecurityMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *PasswordService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// ChangePassword rotates the credential of an authenticated account after
// verifying the current password.
func (s *PasswordService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	if input.CurrentPassword == "" {
		return ErrCurrentPasswordInvalid
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	matches, err := security.VerifyPassword(input.CurrentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !matches {
		return ErrCurrentPasswordInvalid
	}

	return s.rotate(ctx, account, input.NewPassword, accountID, passwordChangeReason, input.IP)
}

// RequestReset issues a single-use reset token bound to the account behind
// the supplied email. An unknown email produces the same generic result as a
// known one so the endpoint cannot be used to enumerate accounts.
func (s *PasswordService) RequestReset(ctx context.Context, input RequestResetInput) (*ResetRequestResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	if err := s.enforceResetRateLimit(ctx, email, now); err != nil {
		return nil, err
	}

	result := &ResetRequestResult{RequestID: uuid.NewString()}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("reset requested for unknown email", zap.String("email", logger.MaskEmail(email)))
			return result, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	raw, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := now.Add(s.resetTTL())
	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(raw), expiresAt); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	result.AccountID = account.ID
	result.Token = raw
	result.Destination = account.Email
	result.MaskedDestination = logger.MaskEmail(account.Email)
	result.ExpiresAt = expiresAt
	result.TokenIssued = true

	s.metrics.RecordResetRequest()

	// The token is already persisted; a dispatch failure downstream degrades
	// delivery but never rolls the token back.
	s.publishResetRequested(ctx, account, result, input.IP, input.UserAgent, now)

	return result, nil
}

// ConfirmReset rotates the credential using a reset token. The guarded
// consume is the atomic claim on the reset right: it runs after the new
// password is vetted but before anything is written, so a lost double-confirm
// race rotates nothing and a policy violation leaves the token intact.
// A successful reset also clears the failure counter and any lock.
func (s *PasswordService) ConfirmReset(ctx context.Context, input ConfirmResetInput) error {
	raw := strings.TrimSpace(input.Token)
	if raw == "" {
		return ErrResetTokenInvalid
	}

	tokenHash := security.HashToken(raw)
	account, err := s.accounts.GetByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if !account.HasPendingReset(now) {
		return ErrResetTokenInvalid
	}

	if err := s.checkRotation(ctx, account, input.NewPassword); err != nil {
		return err
	}

	if err := s.accounts.ConsumeResetToken(ctx, account.ID, tokenHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Another confirmation won the race; the token is spent.
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	if err := s.applyRotation(ctx, account, input.NewPassword, account.ID, passwordResetReason, input.IP); err != nil {
		return err
	}

	// A reset is an authoritative re-proof of identity.
	if err := s.accounts.RecordLoginSuccess(ctx, account.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("clear lockout after reset: %w", err)
	}

	return nil
}

// rotate applies the shared rotation workflow: policy validation, reuse check
// against the current credential and the retained history, hash swap, history
// push of the superseded hash, and trim to the configured depth.
func (s *PasswordService) rotate(ctx context.Context, account *domain.Account, newPassword, changedBy, reason, ip string) error {
	if err := s.checkRotation(ctx, account, newPassword); err != nil {
		return err
	}
	return s.applyRotation(ctx, account, newPassword, changedBy, reason, ip)
}

// checkRotation vets a candidate password without writing anything: policy
// validation plus reuse checks against the current credential and the
// retained history.
func (s *PasswordService) checkRotation(ctx context.Context, account *domain.Account, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	if same, err := security.VerifyPassword(newPassword, account.PasswordHash); err != nil {
		return fmt.Errorf("compare current password: %w", err)
	} else if same {
		return ErrPasswordReuse
	}

	history, err := s.accounts.ListPasswordHistory(ctx, account.ID, s.historyDepth())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("list password history: %w", err)
	}

	for _, entry := range history {
		if reused, verr := security.VerifyPassword(newPassword, entry.PasswordHash); verr != nil {
			return fmt.Errorf("compare password history: %w", verr)
		} else if reused {
			return ErrPasswordReuse
		}
	}

	return nil
}

// applyRotation persists an already vetted rotation.
func (s *PasswordService) applyRotation(ctx context.Context, account *domain.Account, newPassword, changedBy, reason, ip string) error {
	hashed, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	changedAt := s.now().UTC()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hashed, changedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	// The superseded hash joins the history; the oldest entry past the depth
	// is evicted by the trim.
	if err := s.accounts.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		AccountID:    account.ID,
		PasswordHash: account.PasswordHash,
		ReplacedAt:   changedAt,
	}); err != nil {
		return fmt.Errorf("store password history: %w", err)
	}

	if err := s.accounts.TrimPasswordHistory(ctx, account.ID, s.historyDepth()); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID, changedBy, reason, changedAt, ip)

	return nil
}

func (s *PasswordService) historyDepth() int {
	if s.cfg != nil && s.cfg.Password.HistoryDepth > 0 {
		return s.cfg.Password.HistoryDepth
	}
	return domain.PasswordHistoryDepth
}

func (s *PasswordService) resetTTL() time.Duration {
	if s.cfg != nil && s.cfg.Reset.TokenTTL > 0 {
		return s.cfg.Reset.TokenTTL
	}
	return 15 * time.Minute
}

func (s *PasswordService) enforceResetRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	storageKey := fmt.Sprintf("%s:%s", resetRateLimitScope, email)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("reset rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("reset rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			if reset := oldest.Add(window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("reset rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: resetRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("reset rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *PasswordService) publishResetRequested(ctx context.Context, account *domain.Account, result *ResetRequestResult, ip, userAgent string, now time.Time) {
	if s.events == nil {
		return
	}

	metadata := map[string]any{
		"request_id": result.RequestID,
	}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		metadata["user_agent"] = ua
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         account.ID,
		RequestID:         result.RequestID,
		RequestedAt:       now,
		Destination:       account.Email,
		MaskedDestination: result.MaskedDestination,
		IPAddress:         stringPtrOrNil(ip),
		ExpiresAt:         result.ExpiresAt,
		Metadata:          metadata,
	}

	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish reset requested event failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *PasswordService) publishPasswordChanged(ctx context.Context, accountID, changedBy, reason string, changedAt time.Time, ip string) {
	if s.events == nil {
		return
	}

	metadata := map[string]any{}
	if trimmed := strings.TrimSpace(ip); trimmed != "" {
		metadata["ip"] = logger.MaskIP(trimmed)
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: changedAt,
		ChangedBy: changedBy,
		Reason:    reason,
		Metadata:  metadataCopy(metadata),
	}

	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}
