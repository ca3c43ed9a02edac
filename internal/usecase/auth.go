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
	"github.com/arklim/confession-platform-api/internal/infra/security"
	"github.com/arklim/confession-platform-api/internal/repository"
)

const loginRateLimitScope = "login"

// Identity is the resolved caller attached to authenticated requests.
type Identity struct {
	AccountID string
	Nickname  string
	Email     string
	// Channel records which trust channel admitted the request.
	Channel string
	// Session is non-nil when the session channel validated; its expiry has
	// already been extended for this request.
	Session *domain.Session
}

// Trust channel labels recorded on Identity.Channel.
const (
	ChannelToken   = "token"
	ChannelSession = "session"
)

// LoginInput carries a credential submission.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token   string
	Session *domain.Session
	Account domain.Account
}

// AuthorizeInput carries the trust artifacts presented by a request. Either
// field may be empty; at least one must validate.
type AuthorizeInput struct {
	BearerToken string
	SessionID   string
	IP          string
	UserAgent   string
}

// AuthService orchestrates login, per-request verification, and logout.
type AuthService struct {
	cfg        *config.AppConfig
	accounts   port.AccountRepository
	sessions   *SessionService
	issuer     *security.TokenIssuer
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	metrics    SecurityMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	sessions *SessionService,
	issuer *security.TokenIssuer,
	rateLimits port.RateLimitStore,
	events port.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		cfg:        cfg,
		accounts:   accounts,
		sessions:   sessions,
		issuer:     issuer,
		rateLimits: rateLimits,
		events:     events,
		metrics:    nopMetrics{},
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics injects security counters.
func (s *AuthService) WithMetrics(metrics SecurityMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// TokenTTL exposes the fixed lifetime of minted bearer tokens.
func (s *AuthService) TokenTTL() time.Duration {
	if s.issuer == nil {
		return 0
	}
	return s.issuer.TTL()
}

// Login validates credentials and, on success, mints a bearer token and
// establishes a session. The lock gate runs before verification so attempts
// against a locked account neither extend the lock nor consume counter slots.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	now := s.now().UTC()
	if err := s.enforceLoginRateLimit(ctx, email, now); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Keep the failure shape identical to a wrong password.
			s.metrics.RecordLoginAttempt(LoginOutcomeFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.IsLocked(now) {
		s.metrics.RecordLoginAttempt(LoginOutcomeLocked)
		return nil, &AccountLockedError{RetryAfter: account.RemainingLock(now)}
	}

	ok, err := security.VerifyPassword(input.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.handleLoginFailure(ctx, account, input.IP, now)
	}

	if err := s.accounts.RecordLoginSuccess(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("record login success: %w", err)
	}

	if account.CredentialExpired(now, s.cfg.Password.ExpiryTTL) {
		// Correct password, but the credential aged out: login is refused
		// until the user resets. No token or session is issued.
		s.metrics.RecordLoginAttempt(LoginOutcomeExpired)
		return nil, ErrCredentialExpired
	}

	token, err := s.issuer.Mint(account.ID, account.Nickname)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	session, err := s.sessions.Establish(ctx, account.ID, account.Nickname, stringPtrOrNil(input.IP), stringPtrOrNil(input.UserAgent))
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLoginAttempt(LoginOutcomeSuccess)

	sanitized := *account
	sanitized.PasswordHash = ""
	sanitized.FailedAttempts = 0
	sanitized.LockedUntil = nil
	sanitized.LastLogin = &now

	return &LoginResult{Token: token, Session: session, Account: sanitized}, nil
}

// handleLoginFailure applies the atomic failure increment and translates the
// post-increment state into the error the caller sees.
func (s *AuthService) handleLoginFailure(ctx context.Context, account *domain.Account, ip string, now time.Time) error {
	record, err := s.accounts.RecordLoginFailure(ctx, account.ID, s.cfg.Lockout.MaxAttempts, s.cfg.Lockout.LockDuration, now)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	if record.LockedUntil != nil && record.LockedUntil.After(now) {
		s.metrics.RecordLoginAttempt(LoginOutcomeLocked)
		s.metrics.RecordLockout()
		s.publishAccountLocked(ctx, account.ID, now, *record.LockedUntil, record.FailedAttempts, ip)
		return &AccountLockedError{RetryAfter: record.LockedUntil.Sub(now)}
	}

	s.metrics.RecordLoginAttempt(LoginOutcomeFailure)

	remaining := s.cfg.Lockout.MaxAttempts - record.FailedAttempts
	if remaining < 0 {
		remaining = 0
	}
	return &InvalidCredentialsError{RemainingAttempts: remaining}
}

// Authorize resolves the caller's identity from either trust channel. A valid
// bearer token and a valid session are each sufficient on their own; password
// expiry is re-checked against the current account record on every request.
func (s *AuthService) Authorize(ctx context.Context, input AuthorizeInput) (*Identity, error) {
	identity := &Identity{}

	token := strings.TrimSpace(input.BearerToken)
	if token != "" {
		claims, err := s.issuer.Parse(token)
		if err == nil {
			identity.AccountID = claims.AccountID
			identity.Nickname = claims.Nickname
			identity.Channel = ChannelToken
		}
	}

	if identity.Channel == "" && input.SessionID != "" {
		session, err := s.sessions.Touch(ctx, input.SessionID, stringPtrOrNil(input.IP), stringPtrOrNil(input.UserAgent))
		if err == nil {
			identity.AccountID = session.AccountID
			identity.Nickname = session.Nickname
			identity.Channel = ChannelSession
			identity.Session = session
		} else if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}

	if identity.Channel == "" {
		return nil, ErrUnauthenticated
	}

	account, err := s.accounts.GetByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.CredentialExpired(s.now().UTC(), s.cfg.Password.ExpiryTTL) {
		return nil, ErrCredentialExpired
	}

	identity.Nickname = account.Nickname
	identity.Email = account.Email

	return identity, nil
}

// Logout revokes the presented session. Bearer tokens stay valid until their
// fixed expiry; only the session channel is server-revocable.
func (s *AuthService) Logout(ctx context.Context, sessionID, accountID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID, accountID, "logout")
}

func (s *AuthService) enforceLoginRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	storageKey := fmt.Sprintf("%s:%s", loginRateLimitScope, email)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("login rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("login rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			if reset := oldest.Add(window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("login rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: loginRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("login rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *AuthService) publishAccountLocked(ctx context.Context, accountID string, lockedAt, lockedUntil time.Time, attempts int, ip string) {
	if s.events == nil {
		return
	}

	event := domain.AccountLockedEvent{
		EventID:     uuid.NewString(),
		AccountID:   accountID,
		LockedAt:    lockedAt,
		LockedUntil: lockedUntil,
		Attempts:    attempts,
		IPAddress:   stringPtrOrNil(ip),
	}

	if err := s.events.PublishAccountLocked(ctx, event); err != nil {
		s.logger.Warn("publish account locked event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}
