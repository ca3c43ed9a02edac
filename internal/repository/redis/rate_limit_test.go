package redis

import (
	"context"
	"testing"
	"time"
)

func newTestRateLimitStore(t *testing.T) *RateLimitStore {
	t.Helper()

	client, _ := newTestRedis(t)
	return NewRateLimitStore(client, SlidingWindowConfig{
		KeyPrefix: "rl:test",
		TTL:       time.Hour,
	})
}

func TestRateLimitStoreCountsWithinWindow(t *testing.T) {
	store := newTestRateLimitStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Two attempts inside a one minute window, one well before it.
	for _, at := range []time.Time{now.Add(-2 * time.Minute), now.Add(-30 * time.Second), now} {
		if err := store.RecordAttempt(ctx, "login:whisper@example.com", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := store.CountAttempts(ctx, "login:whisper@example.com", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts inside the window, got %d", count)
	}
}

func TestRateLimitStoreIsolatesIdentifiers(t *testing.T) {
	store := newTestRateLimitStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.RecordAttempt(ctx, "login:a@example.com", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	count, err := store.CountAttempts(ctx, "login:b@example.com", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no attempts for a different identifier, got %d", count)
	}
}

func TestRateLimitStoreTrimWindow(t *testing.T) {
	store := newTestRateLimitStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.RecordAttempt(ctx, "reset:whisper@example.com", now.Add(-10*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := store.RecordAttempt(ctx, "reset:whisper@example.com", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := store.TrimWindow(ctx, "reset:whisper@example.com", time.Minute, now); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := store.CountAttempts(ctx, "reset:whisper@example.com", time.Hour, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the recent attempt to survive the trim, got %d", count)
	}
}

func TestRateLimitStoreOldestAttempt(t *testing.T) {
	store := newTestRateLimitStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	oldest := now.Add(-45 * time.Second)

	for _, at := range []time.Time{oldest, now.Add(-15 * time.Second), now} {
		if err := store.RecordAttempt(ctx, "login:whisper@example.com", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	got, found, err := store.OldestAttempt(ctx, "login:whisper@example.com", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !found {
		t.Fatalf("expected an attempt inside the window")
	}
	if !got.Equal(oldest) {
		t.Fatalf("expected oldest attempt %v, got %v", oldest, got)
	}
}

func TestRateLimitStoreOldestAttemptEmptyWindow(t *testing.T) {
	store := newTestRateLimitStore(t)

	_, found, err := store.OldestAttempt(context.Background(), "login:ghost@example.com", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if found {
		t.Fatalf("expected no attempts for an unused identifier")
	}
}

func TestRateLimitStoreRejectsNonPositiveWindow(t *testing.T) {
	store := newTestRateLimitStore(t)

	if _, err := store.CountAttempts(context.Background(), "x", 0, time.Now()); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
	if err := store.TrimWindow(context.Background(), "x", -time.Second, time.Now()); err == nil {
		t.Fatalf("expected error for negative window")
	}
}
