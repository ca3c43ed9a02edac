package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/infra/security"
	"github.com/arklim/confession-platform-api/internal/repository"
)

type authFixture struct {
	now     time.Time
	repo    *stubAccountRepo
	store   *memorySessionStore
	events  *capturingPublisher
	metrics *capturingMetrics
	auth    *AuthService
}

func newAuthFixture(t *testing.T, at time.Time) *authFixture {
	t.Helper()

	f := &authFixture{
		now:     at,
		repo:    &stubAccountRepo{},
		store:   newMemorySessionStore(),
		events:  &capturingPublisher{},
		metrics: &capturingMetrics{},
	}
	clock := func() time.Time { return f.now }

	issuer, err := security.NewTokenIssuer("test-signing-secret", 24*time.Hour, "confession-platform")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	issuer.WithClock(clock)

	log := zaptest.NewLogger(t)
	sessions := NewSessionService(f.store, f.events, 5*time.Minute, log)
	sessions.WithClock(clock)

	f.auth = NewAuthService(testConfig(), f.repo, sessions, issuer, nil, f.events, log)
	f.auth.WithClock(clock)
	f.auth.WithMetrics(f.metrics)

	return f
}

func testAccount(t *testing.T, now time.Time, password string) *domain.Account {
	t.Helper()
	return &domain.Account{
		ID:                "acc-1",
		Nickname:          "whisper",
		Email:             "whisper@example.com",
		PasswordHash:      mustHash(t, password),
		PasswordChangedAt: now.Add(-24 * time.Hour),
		CreatedAt:         now.Add(-30 * 24 * time.Hour),
	}
}

func TestLoginSuccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")

	successRecorded := false
	f.repo.getByEmailFn = func(_ context.Context, email string) (*domain.Account, error) {
		if email != account.Email {
			t.Fatalf("lookup email = %q, want %q", email, account.Email)
		}
		copied := *account
		return &copied, nil
	}
	f.repo.recordLoginSuccessFn = func(_ context.Context, id string, at time.Time) error {
		if id != account.ID {
			t.Fatalf("success recorded for %q, want %q", id, account.ID)
		}
		successRecorded = true
		return nil
	}

	result, err := f.auth.Login(context.Background(), LoginInput{
		Email:    "Whisper@Example.com",
		Password: "Tq7!xRw2p",
		IP:       "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if !successRecorded {
		t.Fatal("successful login must reset the failure counter")
	}
	if result.Token == "" {
		t.Fatal("successful login must mint a bearer token")
	}
	if result.Session == nil || result.Session.AccountID != account.ID {
		t.Fatalf("session not established for the account: %+v", result.Session)
	}
	if !result.Session.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("session expiry = %v, want idle window from login", result.Session.ExpiresAt)
	}
	if result.Account.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}
	if len(f.metrics.attempts) != 1 || f.metrics.attempts[0] != LoginOutcomeSuccess {
		t.Fatalf("metrics attempts = %v, want single success", f.metrics.attempts)
	}
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)

	f.repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		return nil, repository.ErrNotFound
	}

	_, err := f.auth.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "Tq7!xRw2p"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	// The unknown-email failure must not carry a remaining-attempts count;
	// that detail would distinguish it from a wrong password.
	var detailed *InvalidCredentialsError
	if errors.As(err, &detailed) {
		t.Fatal("unknown email must not expose attempt accounting")
	}
}

func TestLoginWrongPasswordCountsDown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")

	f.repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}
	f.repo.recordLoginFailureFn = func(_ context.Context, id string, threshold int, lockFor time.Duration, at time.Time) (*port.FailureRecord, error) {
		if threshold != 5 || lockFor != 15*time.Minute {
			t.Fatalf("lockout policy = (%d, %v), want (5, 15m)", threshold, lockFor)
		}
		return &port.FailureRecord{FailedAttempts: 2}, nil
	}

	_, err := f.auth.Login(context.Background(), LoginInput{Email: account.Email, Password: "wrong-pass"})

	var invalid *InvalidCredentialsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidCredentialsError", err)
	}
	if invalid.RemainingAttempts != 3 {
		t.Fatalf("remaining attempts = %d, want 3", invalid.RemainingAttempts)
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("detailed failure must still match the sentinel")
	}
}

func TestLoginFifthFailureLocks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")
	lockedUntil := now.Add(15 * time.Minute)

	f.repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}
	f.repo.recordLoginFailureFn = func(context.Context, string, int, time.Duration, time.Time) (*port.FailureRecord, error) {
		return &port.FailureRecord{FailedAttempts: 5, LockedUntil: &lockedUntil}, nil
	}

	_, err := f.auth.Login(context.Background(), LoginInput{Email: account.Email, Password: "wrong-pass", IP: "10.0.0.1"})

	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("err = %v, want AccountLockedError", err)
	}
	if locked.RetryAfter != 15*time.Minute {
		t.Fatalf("retry after = %v, want 15m", locked.RetryAfter)
	}

	if len(f.events.locked) != 1 {
		t.Fatalf("locked events = %d, want 1", len(f.events.locked))
	}
	if f.events.locked[0].Attempts != 5 {
		t.Fatalf("locked event attempts = %d, want 5", f.events.locked[0].Attempts)
	}
	if f.metrics.lockouts != 1 {
		t.Fatalf("lockout counter = %d, want 1", f.metrics.lockouts)
	}
}

func TestLoginWhileLockedSkipsCounter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")
	lockedUntil := now.Add(10 * time.Minute)
	account.FailedAttempts = 5
	account.LockedUntil = &lockedUntil

	// recordLoginFailureFn stays unset: an attempt during the lock window
	// must not touch the counter, even with the correct password.
	f.repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}

	_, err := f.auth.Login(context.Background(), LoginInput{Email: account.Email, Password: "Tq7!xRw2p"})

	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("err = %v, want AccountLockedError", err)
	}
	if locked.RetryAfter != 10*time.Minute {
		t.Fatalf("retry after = %v, want remaining 10m", locked.RetryAfter)
	}
}

func TestLoginLockSelfHeals(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")
	expired := now.Add(-time.Second)
	account.FailedAttempts = 5
	account.LockedUntil = &expired

	cleared := false
	f.repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}
	f.repo.recordLoginSuccessFn = func(context.Context, string, time.Time) error {
		cleared = true
		return nil
	}

	if _, err := f.auth.Login(context.Background(), LoginInput{Email: account.Email, Password: "Tq7!xRw2p"}); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if !cleared {
		t.Fatal("successful login must clear the stale lock and counter")
	}
}

func TestLoginExpiredCredentialBlocksCorrectPassword(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")
	account.PasswordChangedAt = now.Add(-91 * 24 * time.Hour)

	f.repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}
	f.repo.recordLoginSuccessFn = func(context.Context, string, time.Time) error { return nil }

	_, err := f.auth.Login(context.Background(), LoginInput{Email: account.Email, Password: "Tq7!xRw2p"})
	if !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("err = %v, want ErrCredentialExpired", err)
	}
	if len(f.store.sessions) != 0 {
		t.Fatal("no session may be established for an expired credential")
	}
}

func TestLoginRateLimited(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)

	cfg := testConfig()
	cfg.RateLimit.WindowDuration = time.Minute
	cfg.RateLimit.LoginMaxAttempts = 3

	limits := newMemoryRateLimitStore()
	for i := 0; i < 3; i++ {
		_ = limits.RecordAttempt(context.Background(), "login:ghost@example.com", now.Add(-time.Duration(i+1)*time.Second))
	}

	log := zaptest.NewLogger(t)
	issuer, err := security.NewTokenIssuer("test-signing-secret", 24*time.Hour, "confession-platform")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	sessions := NewSessionService(f.store, f.events, 5*time.Minute, log)
	auth := NewAuthService(cfg, f.repo, sessions, issuer, limits, f.events, log)
	auth.WithClock(func() time.Time { return now })

	_, loginErr := auth.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "Tq7!xRw2p"})

	var limited *RateLimitExceededError
	if !errors.As(loginErr, &limited) {
		t.Fatalf("err = %v, want RateLimitExceededError", loginErr)
	}
	if limited.RetryAfter <= 0 {
		t.Fatalf("retry after = %v, want positive", limited.RetryAfter)
	}
}

func TestAuthorizeTokenChannel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")

	f.repo.getByIDFn = func(_ context.Context, id string) (*domain.Account, error) {
		if id != account.ID {
			t.Fatalf("lookup id = %q, want %q", id, account.ID)
		}
		copied := *account
		return &copied, nil
	}

	token, err := f.auth.issuer.Mint(account.ID, account.Nickname)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	identity, err := f.auth.Authorize(context.Background(), AuthorizeInput{BearerToken: token})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if identity.Channel != ChannelToken {
		t.Fatalf("channel = %q, want token", identity.Channel)
	}
	if identity.AccountID != account.ID || identity.Email != account.Email {
		t.Fatalf("identity = %+v, want account fields resolved", identity)
	}
}

func TestAuthorizeSessionChannelExtendsWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")

	f.repo.getByIDFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}

	session, err := f.auth.sessions.Establish(context.Background(), account.ID, account.Nickname, nil, nil)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	f.now = now.Add(4 * time.Minute)
	identity, err := f.auth.Authorize(context.Background(), AuthorizeInput{SessionID: session.ID})
	if err != nil {
		t.Fatalf("Authorize via session: %v", err)
	}
	if identity.Channel != ChannelSession {
		t.Fatalf("channel = %q, want session", identity.Channel)
	}
	if identity.Session == nil {
		t.Fatal("session channel must return the refreshed session")
	}
	if want := f.now.Add(5 * time.Minute); !identity.Session.ExpiresAt.Equal(want) {
		t.Fatalf("session expiry = %v, want rolled to %v", identity.Session.ExpiresAt, want)
	}
}

func TestAuthorizeIdleSessionRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)

	session, err := f.auth.sessions.Establish(context.Background(), "acc-1", "whisper", nil, nil)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	f.now = now.Add(6 * time.Minute)
	_, err = f.auth.Authorize(context.Background(), AuthorizeInput{SessionID: session.ID})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorizeExpiredTokenWithLiveSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")

	f.repo.getByIDFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}

	token, err := f.auth.issuer.Mint(account.ID, account.Nickname)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Jump past the token's fixed window, then establish a fresh session.
	f.now = now.Add(24*time.Hour + time.Minute)
	session, err := f.auth.sessions.Establish(context.Background(), account.ID, account.Nickname, nil, nil)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	account.PasswordChangedAt = f.now.Add(-time.Hour)

	identity, err := f.auth.Authorize(context.Background(), AuthorizeInput{BearerToken: token, SessionID: session.ID})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if identity.Channel != ChannelSession {
		t.Fatalf("channel = %q, want session fallback for an expired token", identity.Channel)
	}
}

func TestAuthorizeWithoutArtifacts(t *testing.T) {
	f := newAuthFixture(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, err := f.auth.Authorize(context.Background(), AuthorizeInput{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorizeRechecksCredentialExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)
	account := testAccount(t, now, "Tq7!xRw2p")
	account.PasswordChangedAt = now.Add(-91 * 24 * time.Hour)

	f.repo.getByIDFn = func(context.Context, string) (*domain.Account, error) {
		copied := *account
		return &copied, nil
	}

	token, err := f.auth.issuer.Mint(account.ID, account.Nickname)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = f.auth.Authorize(context.Background(), AuthorizeInput{BearerToken: token})
	if !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("err = %v, want ErrCredentialExpired despite valid token", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newAuthFixture(t, now)

	session, err := f.auth.sessions.Establish(context.Background(), "acc-1", "whisper", nil, nil)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}

	if err := f.auth.Logout(context.Background(), session.ID, "acc-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, ok := f.store.sessions[session.ID]; ok {
		t.Fatal("logout must delete the session")
	}
	if len(f.events.revoked) != 1 || f.events.revoked[0].Reason != "logout" {
		t.Fatalf("revoked events = %+v, want one logout revocation", f.events.revoked)
	}
}
