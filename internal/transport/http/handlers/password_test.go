package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arklim/confession-platform-api/internal/infra/config"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

type recordingDispatcher struct {
	err   error
	calls []PasswordResetNotification
}

func (d *recordingDispatcher) SendPasswordReset(_ context.Context, payload PasswordResetNotification) error {
	d.calls = append(d.calls, payload)
	return d.err
}

func issuedResetResult() *usecase.ResetRequestResult {
	return &usecase.ResetRequestResult{
		AccountID:   "acc-1",
		RequestID:   "req-1",
		Token:       "raw-reset-token",
		Destination: "whisper@example.com",
		ExpiresAt:   time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC),
		TokenIssued: true,
	}
}

func TestDispatchResetFailureIsLoggedNotSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := &recordingDispatcher{err: errors.New("smtp relay unreachable")}
	handler := NewPasswordHandler(nil, dispatcher, config.ResetSettings{LinkBase: "https://confess.example.com/reset"}, zap.New(core))

	handler.dispatchReset(context.Background(), issuedResetResult())

	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(dispatcher.calls))
	}

	entries := logs.FilterMessage("password reset dispatch failed").All()
	if len(entries) != 1 {
		t.Fatalf("warn entries = %d, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("request_id field = %v, want req-1", fields["request_id"])
	}
	if fields["recipient"] != "whi***@example.com" {
		t.Fatalf("recipient field = %v, want the masked address", fields["recipient"])
	}
}

func TestDispatchResetSuccessLogsNothing(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := &recordingDispatcher{}
	handler := NewPasswordHandler(nil, dispatcher, config.ResetSettings{LinkBase: "https://confess.example.com/reset"}, zap.New(core))

	handler.dispatchReset(context.Background(), issuedResetResult())

	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(dispatcher.calls))
	}
	if got := dispatcher.calls[0].ResetLink; got != "https://confess.example.com/reset/raw-reset-token" {
		t.Fatalf("reset link = %q", got)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected log entries: %v", logs.All())
	}
}

func TestDispatchResetSkipsUnissuedToken(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	handler := NewPasswordHandler(nil, dispatcher, config.ResetSettings{}, zap.NewNop())

	result := issuedResetResult()
	result.TokenIssued = false
	result.Token = ""
	handler.dispatchReset(context.Background(), result)

	if len(dispatcher.calls) != 0 {
		t.Fatalf("dispatch calls = %d, want 0 for an unissued token", len(dispatcher.calls))
	}
}
