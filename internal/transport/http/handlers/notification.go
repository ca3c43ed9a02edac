package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/infra/logger"
)

// NotificationDispatcher fans out security-critical notifications to
// downstream delivery channels.
type NotificationDispatcher interface {
	SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error
}

// PasswordResetNotification captures data needed to deliver a reset link.
type PasswordResetNotification struct {
	Recipient string
	ResetLink string
	Expires   time.Time
}

type noopDispatcher struct{}

func (noopDispatcher) SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error {
	return nil
}

// LoggingNotificationDispatcher records dispatch events for observability
// without delivering them. The reset link itself is never logged.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
}

// NewLoggingNotificationDispatcher constructs a notification dispatcher backed by structured logging.
func NewLoggingNotificationDispatcher(logger *zap.Logger) NotificationDispatcher {
	if logger == nil {
		return noopDispatcher{}
	}
	return &LoggingNotificationDispatcher{logger: logger}
}

func (d *LoggingNotificationDispatcher) SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error {
	if d == nil || d.logger == nil {
		return nil
	}

	d.logger.Info("dispatch password reset",
		zap.String("recipient", logger.MaskEmail(payload.Recipient)),
		zap.Time("expires_at", payload.Expires),
	)
	return nil
}
