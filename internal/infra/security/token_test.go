package security

import (
	"encoding/base64"
	"testing"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not URL-safe base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("decoded length = %d, want 32", len(raw))
	}

	other, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken: %v", err)
	}
	if token == other {
		t.Fatal("two generated tokens collided")
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	first := HashToken("reset-token-value")
	second := HashToken("reset-token-value")

	if first != second {
		t.Fatal("hashing the same token twice must match")
	}
	if len(first) != 64 {
		t.Fatalf("hash length = %d, want 64 hex characters", len(first))
	}
	if first == HashToken("another-token") {
		t.Fatal("different tokens produced the same hash")
	}
}
