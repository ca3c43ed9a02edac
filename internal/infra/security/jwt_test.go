package security

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, at time.Time) *TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer("test-signing-secret", 24*time.Hour, "confession-platform")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer.WithClock(func() time.Time { return at })
}

func TestTokenIssuerMintParse(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, issuedAt)

	raw, err := issuer.Mint("acc-1", "whisper")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := issuer.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.AccountID != "acc-1" {
		t.Fatalf("account id = %q, want acc-1", claims.AccountID)
	}
	if claims.Nickname != "whisper" {
		t.Fatalf("nickname = %q, want whisper", claims.Nickname)
	}
	if got := claims.ExpiresAt.Time; !got.Equal(issuedAt.Add(24 * time.Hour)) {
		t.Fatalf("expiry = %v, want issue time plus 24h", got)
	}
}

func TestTokenIssuerFixedValidityWindow(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, issuedAt)

	raw, err := issuer.Mint("acc-1", "whisper")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	issuer.WithClock(func() time.Time { return issuedAt.Add(23*time.Hour + 59*time.Minute) })
	if _, err := issuer.Parse(raw); err != nil {
		t.Fatalf("token one minute before expiry rejected: %v", err)
	}

	issuer.WithClock(func() time.Time { return issuedAt.Add(24*time.Hour + time.Minute) })
	if _, err := issuer.Parse(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("token one minute past expiry: err = %v, want ErrTokenExpired", err)
	}
}

func TestTokenIssuerRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t, time.Now())

	if _, err := issuer.Parse("not.a.token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("garbage token: err = %v, want ErrTokenMalformed", err)
	}
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	other, err := NewTokenIssuer("a-different-secret", 24*time.Hour, "confession-platform")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	raw, err := other.WithClock(func() time.Time { return at }).Mint("acc-1", "whisper")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	issuer := newTestIssuer(t, at)
	if _, err := issuer.Parse(raw); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("foreign signature: err = %v, want ErrTokenMalformed", err)
	}
}

func TestTokenIssuerRejectsMissingIdentity(t *testing.T) {
	issuer := newTestIssuer(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	raw, err := issuer.Mint("", "whisper")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := issuer.Parse(raw); !errors.Is(err, ErrTokenMissingIdentity) {
		t.Fatalf("empty uid claim: err = %v, want ErrTokenMissingIdentity", err)
	}
}

func TestNewTokenIssuerValidation(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour, "x"); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenIssuer("secret", 0, "x"); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}
