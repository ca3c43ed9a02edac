package domain

import (
	"testing"
	"time"
)

func TestSessionRollingWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idle := 5 * time.Minute

	session := Session{
		ID:        "sess-1",
		AccountID: "acc-1",
		CreatedAt: start,
		LastSeen:  start,
		ExpiresAt: start.Add(idle),
	}

	// Activity every four minutes keeps the session alive indefinitely.
	at := start
	for i := 0; i < 5; i++ {
		at = at.Add(4 * time.Minute)
		if !session.IsActive(at) {
			t.Fatalf("session inactive at touch %d despite 4m cadence", i+1)
		}
		session.Touch(at, idle, nil, nil)
	}

	if got := session.ExpiresAt; !got.Equal(at.Add(idle)) {
		t.Fatalf("expiry = %v, want last activity plus idle window", got)
	}
	if !session.LastSeen.Equal(at) {
		t.Fatalf("last seen = %v, want %v", session.LastSeen, at)
	}

	// A six minute gap overshoots the five minute window.
	if session.IsActive(at.Add(6 * time.Minute)) {
		t.Fatal("session must be inactive after idling past the window")
	}
}

func TestSessionTouchRecordsClientMetadata(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := Session{ID: "sess-1", CreatedAt: start, LastSeen: start, ExpiresAt: start.Add(5 * time.Minute)}

	firstIP := "10.0.0.1"
	session.Touch(start.Add(time.Minute), 5*time.Minute, &firstIP, nil)
	if session.IPFirst == nil || *session.IPFirst != firstIP {
		t.Fatalf("first ip not captured: %v", session.IPFirst)
	}

	secondIP := "10.0.0.2"
	agent := "test-agent"
	session.Touch(start.Add(2*time.Minute), 5*time.Minute, &secondIP, &agent)

	if *session.IPFirst != firstIP {
		t.Fatal("first observed ip must not be overwritten")
	}
	if session.IPLast == nil || *session.IPLast != secondIP {
		t.Fatalf("last ip = %v, want %s", session.IPLast, secondIP)
	}
	if session.UserAgent == nil || *session.UserAgent != agent {
		t.Fatalf("user agent = %v, want %s", session.UserAgent, agent)
	}
}
