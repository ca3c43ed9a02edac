package security

import (
	"strings"
	"testing"
)

func lightArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	if err := ConfigureArgon2(lightArgon2Config()); err != nil {
		t.Fatalf("ConfigureArgon2: %v", err)
	}
	t.Cleanup(func() { _ = ConfigureArgon2(DefaultArgon2Config()) })

	encoded, err := HashPassword("Tq7!xRw2p")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if parts := strings.Split(encoded, ":"); len(parts) != 2 {
		t.Fatalf("expected salt:hash encoding, got %q", encoded)
	}

	ok, err := VerifyPassword("Tq7!xRw2p", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("correct password did not verify")
	}

	ok, err = VerifyPassword("Tq7!xRw2q", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword wrong password: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	if err := ConfigureArgon2(lightArgon2Config()); err != nil {
		t.Fatalf("ConfigureArgon2: %v", err)
	}
	t.Cleanup(func() { _ = ConfigureArgon2(DefaultArgon2Config()) })

	first, err := HashPassword("Tq7!xRw2p")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("Tq7!xRw2p")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if first == second {
		t.Fatal("two hashes of the same password must differ by salt")
	}
}

func TestVerifyPasswordRejectsEmptyInputs(t *testing.T) {
	if ok, err := VerifyPassword("", "salt:hash"); err != nil || ok {
		t.Fatalf("empty password: ok=%v err=%v", ok, err)
	}
	if ok, err := VerifyPassword("secret", ""); err != nil || ok {
		t.Fatalf("empty hash: ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordBadFormat(t *testing.T) {
	if _, err := VerifyPassword("secret", "not-a-valid-encoding"); err == nil {
		t.Fatal("expected error for malformed hash encoding")
	}
}

func TestConfigureArgon2RejectsWeakParameters(t *testing.T) {
	weak := lightArgon2Config()
	weak.Memory = 1024

	if err := ConfigureArgon2(weak); err == nil {
		t.Fatal("expected rejection of sub-minimum memory")
	}
}
