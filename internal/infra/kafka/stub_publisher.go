package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"nickname":      event.Nickname,
		"email":         event.Email,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs account.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id":       event.AccountID,
		"changed_at":       event.ChangedAt,
		"changed_by":       event.ChangedBy,
		"reason":           event.Reason,
		"sessions_revoked": event.SessionsRevoked,
		"metadata":         event.Metadata,
	}
	p.logEvent("account.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs account.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"account_id":         event.AccountID,
		"request_id":         event.RequestID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"ip_address":         event.IPAddress,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("account.password.reset_requested", event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishAccountLocked logs account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"locked_at":    event.LockedAt,
		"locked_until": event.LockedUntil,
		"attempts":     event.Attempts,
		"ip_address":   event.IPAddress,
		"metadata":     event.Metadata,
	}
	p.logEvent("account.locked", event.AccountID, event.LockedAt, payload)
	return nil
}

// PublishSessionRevoked logs session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"account_id": event.AccountID,
		"revoked_at": event.RevokedAt,
		"reason":     event.Reason,
		"metadata":   event.Metadata,
	}
	p.logEvent("session.revoked", event.AccountID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
