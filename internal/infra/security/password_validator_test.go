package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordValidator(t *testing.T) {
	validator := DefaultPasswordValidator()

	cases := []struct {
		name     string
		password string
		wantCode string
	}{
		{name: "valid", password: "Tq7!xRw2p", wantCode: ""},
		{name: "too short", password: "Tq7!x", wantCode: "min_length"},
		{name: "too long", password: "Tq7!xRw2pLm9#Qz4Y", wantCode: "max_length"},
		{name: "no uppercase", password: "tq7!xrw2p", wantCode: "upper"},
		{name: "no lowercase", password: "TQ7!XRW2P", wantCode: "lower"},
		{name: "no digit", password: "Tqz!xRwYp", wantCode: "digit"},
		{name: "no symbol", password: "Tq7absRw2p", wantCode: "symbol"},
		{name: "minimal conforming", password: "Abc123!@", wantCode: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.password)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tc.password, err)
				}
				return
			}

			var violation *PasswordValidationError
			if !errors.As(err, &violation) {
				t.Fatalf("Validate(%q) = %v, want PasswordValidationError", tc.password, err)
			}
			if violation.Code != tc.wantCode {
				t.Fatalf("violation code = %q, want %q", violation.Code, tc.wantCode)
			}
		})
	}
}

func TestPolicyValidatorCustomBounds(t *testing.T) {
	validator := NewPolicyValidator(PasswordPolicy{MinLength: 10, MaxLength: 20})

	var violation *PasswordValidationError
	if err := validator.Validate("Tq7!xRw2p"); !errors.As(err, &violation) || violation.Code != "min_length" {
		t.Fatalf("expected min_length for a 9 rune password under a 10 rune floor, got %v", err)
	}
	if err := validator.Validate("Tq7!xRw2pLm9#Qz4Y"); err != nil {
		t.Fatalf("17 runes must pass with the cap raised to 20, got %v", err)
	}
}

func TestPolicyValidatorStrengthFloorOptIn(t *testing.T) {
	// The floor defaults to advisory; every complexity-conforming password
	// passes until a deployment raises it.
	if err := DefaultPasswordValidator().Validate("Password1!"); err != nil {
		t.Fatalf("default policy must not reject on strength alone, got %v", err)
	}

	validator := NewPolicyValidator(PasswordPolicy{MinStrengthScore: 4})
	var violation *PasswordValidationError
	if err := validator.Validate("Password1!"); !errors.As(err, &violation) || violation.Code != "weak_password" {
		t.Fatalf("expected weak_password with a raised floor, got %v", err)
	}
}

func TestPasswordValidatorStopsAtFirstViolation(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(8),
		RequireDigitRule(),
	)

	var violation *PasswordValidationError
	err := validator.Validate("abc")
	if !errors.As(err, &violation) || violation.Code != "min_length" {
		t.Fatalf("expected min_length first, got %v", err)
	}
}

func TestPasswordStrengthRuleUsesUserInputs(t *testing.T) {
	rule := RequirePasswordStrengthRule(4, "whisper", "whisper@example.com")

	if err := rule.Validate("whisper123"); err == nil {
		t.Fatal("password derived from user inputs should score too low")
	}
}
