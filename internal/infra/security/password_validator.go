package security

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError carries the machine-readable code for a single
// policy violation alongside the message shown to the caller.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func violation(code, format string, args ...any) *PasswordValidationError {
	return &PasswordValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// PasswordRule checks one aspect of the password policy.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to the PasswordRule interface.
type PasswordRuleFunc func(password string) error

func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator runs rules in order and stops at the first violation,
// so callers always see the most basic unmet requirement first.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator from the given rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: append([]PasswordRule(nil), rules...)}
}

// Validate reports the first rule the password fails, or nil when all pass.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

const (
	defaultMinPasswordLength = 8
	defaultMaxPasswordLength = 16
)

// PasswordPolicy holds the tunable knobs of the password policy. Zero values
// fall back to the defaults: length 8 to 16, strength floor off.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	MinStrengthScore int
}

// NewPolicyValidator builds the service validator for the given policy:
// length bounds, the four character-class requirements, and a zxcvbn strength
// floor. The floor stays advisory at MinStrengthScore 0 so a password meeting
// the complexity rules is never rejected unless the deployment opts in.
// userInputs seed the strength estimator with account attributes the password
// must not resemble.
func NewPolicyValidator(policy PasswordPolicy, userInputs ...string) *PasswordValidator {
	minLength := policy.MinLength
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	maxLength := policy.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxPasswordLength
	}

	return NewPasswordValidator(
		MinLengthRule(minLength),
		MaxLengthRule(maxLength),
		RequireUpperRule(),
		RequireLowerRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
		RequirePasswordStrengthRule(policy.MinStrengthScore, userInputs...),
	)
}

// DefaultPasswordValidator enforces the default policy.
func DefaultPasswordValidator(userInputs ...string) *PasswordValidator {
	return NewPolicyValidator(PasswordPolicy{}, userInputs...)
}

// MinLengthRule requires at least min characters, counted in runes.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if utf8.RuneCountInString(password) < min {
			return violation("min_length", "password must be at least %d characters long", min)
		}
		return nil
	})
}

// MaxLengthRule caps the password at max characters. A non-positive max
// disables the cap.
func MaxLengthRule(max int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if max > 0 && utf8.RuneCountInString(password) > max {
			return violation("max_length", "password must not exceed %d characters", max)
		}
		return nil
	})
}

func requireClass(code, message string, member func(rune) bool) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if member(r) {
				return nil
			}
		}
		return violation(code, "%s", message)
	})
}

// RequireUpperRule requires at least one uppercase letter.
func RequireUpperRule() PasswordRule {
	return requireClass("upper", "password must include at least one uppercase letter", unicode.IsUpper)
}

// RequireLowerRule requires at least one lowercase letter.
func RequireLowerRule() PasswordRule {
	return requireClass("lower", "password must include at least one lowercase letter", unicode.IsLower)
}

// RequireDigitRule requires at least one digit.
func RequireDigitRule() PasswordRule {
	return requireClass("digit", "password must include at least one digit", unicode.IsDigit)
}

// RequireSymbolRule requires at least one symbol or punctuation character.
func RequireSymbolRule() PasswordRule {
	return requireClass("symbol", "password must include at least one symbol", func(r rune) bool {
		return unicode.IsSymbol(r) || unicode.IsPunct(r)
	})
}

// RequirePasswordStrengthRule rejects passwords scoring below minScore on the
// zxcvbn scale of 0 to 4. Values above 4 are clamped; non-positive values
// disable the check.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}
		if zxcvbn.PasswordStrength(password, userInputs).Score >= minScore {
			return nil
		}
		return violation("weak_password", "password is too weak; choose a more complex value")
	})
}
