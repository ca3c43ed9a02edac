package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/infra/config"
)

const schemaVersion = "1.0"

// Event type names double as topic suffixes, see Producer.TopicName.
const (
	eventAccountRegistered      = "account.registered"
	eventPasswordChanged        = "account.password.changed"
	eventPasswordResetRequested = "account.password.reset_requested"
	eventAccountLocked          = "account.locked"
	eventSessionRevoked         = "session.revoked"
)

// EventPublisher implements port.EventPublisher on top of the async Kafka
// producer. Every event is wrapped in a versioned envelope carrying the
// service identity and, when available, the active trace id.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) envelope(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) eventEnvelope {
	if ts.IsZero() {
		ts = time.Now()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	meta := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		meta["trace_id"] = sc.TraceID().String()
	}

	return eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  meta,
	}
}

func (p *EventPublisher) emit(ctx context.Context, env eventEnvelope) error {
	encoded, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(env.EventType),
		Value: sarama.ByteEncoder(encoded),
	}

	// The async producer applies backpressure through its input channel.
	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type accountRegisteredPayload struct {
	AccountID    string         `json:"account_id"`
	Nickname     string         `json:"nickname"`
	Email        string         `json:"email"`
	RegisteredAt time.Time      `json:"registered_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// PublishAccountRegistered publishes account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := accountRegisteredPayload{
		AccountID:    event.AccountID,
		Nickname:     event.Nickname,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}
	return p.emit(ctx, p.envelope(ctx, event.EventID, eventAccountRegistered, event.AccountID, event.RegisteredAt, payload))
}

type passwordChangedPayload struct {
	AccountID       string         `json:"account_id"`
	ChangedAt       time.Time      `json:"changed_at"`
	ChangedBy       string         `json:"changed_by"`
	Reason          string         `json:"reason,omitempty"`
	SessionsRevoked int            `json:"sessions_revoked"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// PublishPasswordChanged publishes account.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := passwordChangedPayload{
		AccountID:       event.AccountID,
		ChangedAt:       event.ChangedAt.UTC(),
		ChangedBy:       event.ChangedBy,
		Reason:          event.Reason,
		SessionsRevoked: event.SessionsRevoked,
		Metadata:        event.Metadata,
	}
	return p.emit(ctx, p.envelope(ctx, event.EventID, eventPasswordChanged, event.AccountID, event.ChangedAt, payload))
}

type passwordResetRequestedPayload struct {
	AccountID         string         `json:"account_id"`
	RequestID         string         `json:"request_id"`
	RequestedAt       time.Time      `json:"requested_at"`
	Destination       string         `json:"destination,omitempty"`
	MaskedDestination string         `json:"masked_destination,omitempty"`
	IPAddress         *string        `json:"ip_address,omitempty"`
	ExpiresAt         time.Time      `json:"expires_at"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// PublishPasswordResetRequested publishes account.password.reset_requested
// events. The notification service consumes these to send the reset email,
// which keeps SMTP concerns out of this service entirely.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := passwordResetRequestedPayload{
		AccountID:         event.AccountID,
		RequestID:         event.RequestID,
		RequestedAt:       event.RequestedAt.UTC(),
		Destination:       event.Destination,
		MaskedDestination: event.MaskedDestination,
		IPAddress:         event.IPAddress,
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	ts := event.RequestedAt
	if ts.IsZero() {
		ts = event.ExpiresAt
	}
	return p.emit(ctx, p.envelope(ctx, event.EventID, eventPasswordResetRequested, event.AccountID, ts, payload))
}

type accountLockedPayload struct {
	AccountID   string         `json:"account_id"`
	LockedAt    time.Time      `json:"locked_at"`
	LockedUntil time.Time      `json:"locked_until"`
	Attempts    int            `json:"attempts"`
	IPAddress   *string        `json:"ip_address,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PublishAccountLocked publishes account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := accountLockedPayload{
		AccountID:   event.AccountID,
		LockedAt:    event.LockedAt.UTC(),
		LockedUntil: event.LockedUntil.UTC(),
		Attempts:    event.Attempts,
		IPAddress:   event.IPAddress,
		Metadata:    event.Metadata,
	}
	return p.emit(ctx, p.envelope(ctx, event.EventID, eventAccountLocked, event.AccountID, event.LockedAt, payload))
}

type sessionRevokedPayload struct {
	SessionID string         `json:"session_id"`
	AccountID string         `json:"account_id"`
	RevokedAt time.Time      `json:"revoked_at"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PublishSessionRevoked publishes session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := sessionRevokedPayload{
		SessionID: event.SessionID,
		AccountID: event.AccountID,
		RevokedAt: event.RevokedAt.UTC(),
		Reason:    event.Reason,
		Metadata:  event.Metadata,
	}
	return p.emit(ctx, p.envelope(ctx, event.EventID, eventSessionRevoked, event.AccountID, event.RevokedAt, payload))
}

var _ port.EventPublisher = (*EventPublisher)(nil)
