package password

import (
	"unicode"
)

// Rule names reported by StrengthError.
const (
	RuleMinLength = "min_length"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleDigit     = "digit"
	RuleMaxLength = "max_length"
)

const (
	minLength = 8
	// bcrypt rejects inputs longer than 72 bytes.
	maxBytes = 72
)

// StrengthError describes the first strength rule a password failed.
type StrengthError struct {
	Rule    string
	Message string
}

func (e *StrengthError) Error() string {
	return e.Message
}

// Unwrap lets callers match ErrWeakPassword with errors.Is.
func (e *StrengthError) Unwrap() error {
	return ErrWeakPassword
}

// ValidateStrength checks plaintext against the password policy and returns
// the first failure as a *StrengthError, or nil.
// Rules apply in order: length, uppercase, lowercase, digit.
func ValidateStrength(plaintext string) error {
	if len([]rune(plaintext)) < minLength {
		return &StrengthError{Rule: RuleMinLength, Message: "password must be at least 8 characters long"}
	}

	var upper, lower, digit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return &StrengthError{Rule: RuleUppercase, Message: "password must contain at least one uppercase letter"}
	case !lower:
		return &StrengthError{Rule: RuleLowercase, Message: "password must contain at least one lowercase letter"}
	case !digit:
		return &StrengthError{Rule: RuleDigit, Message: "password must contain at least one digit"}
	case len(plaintext) > maxBytes:
		return &StrengthError{Rule: RuleMaxLength, Message: "password must be at most 72 bytes long"}
	}
	return nil
}
