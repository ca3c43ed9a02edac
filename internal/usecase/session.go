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
	"github.com/arklim/confession-platform-api/internal/repository"
)

// SessionService manages server-side sessions with a rolling idle window.
type SessionService struct {
	store   port.SessionStore
	events  port.EventPublisher
	logger  *zap.Logger
	idleTTL time.Duration
	now     func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(store port.SessionStore, events port.EventPublisher, idleTTL time.Duration, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = 5 * time.Minute
	}
	return &SessionService{
		store:   store,
		events:  events,
		logger:  logger,
		idleTTL: idleTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// IdleTTL reports the configured rolling window.
func (s *SessionService) IdleTTL() time.Duration {
	return s.idleTTL
}

// Establish creates a fresh session for the account and returns its record.
// The session ID doubles as the opaque cookie value held by the client.
func (s *SessionService) Establish(ctx context.Context, accountID, nickname string, ip, userAgent *string) (*domain.Session, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("session store not configured")
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Nickname:  nickname,
		IPFirst:   ip,
		IPLast:    ip,
		UserAgent: userAgent,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(s.idleTTL),
	}

	if err := s.store.Create(ctx, session, s.idleTTL); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

// Touch extends the session's rolling expiry from now and returns the
// refreshed record. A session past its idle window is gone and yields
// ErrSessionNotFound.
func (s *SessionService) Touch(ctx context.Context, sessionID string, ip, userAgent *string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	if s.store == nil {
		return nil, fmt.Errorf("session store not configured")
	}

	session, err := s.store.Touch(ctx, sessionID, s.idleTTL, s.now().UTC(), ip, userAgent)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return session, nil
}

// Revoke destroys a session ahead of its natural expiry.
func (s *SessionService) Revoke(ctx context.Context, sessionID, accountID, reason string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if s.store == nil {
		return fmt.Errorf("session store not configured")
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if reason == "" {
		reason = "user requested"
	}
	s.publishSessionRevoked(ctx, sessionID, accountID, reason)

	return nil
}

func (s *SessionService) publishSessionRevoked(ctx context.Context, sessionID, accountID, reason string) {
	if s.events == nil {
		return
	}

	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		AccountID: accountID,
		RevokedAt: s.now().UTC(),
		Reason:    reason,
	}

	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked event failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
