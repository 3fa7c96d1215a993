package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	passwordMinLength = 12
	passwordMaxLength = 128
)

// Substrings that dominate breached-credential lists, plus the product name
// itself. Matched case-insensitively anywhere in the password.
var weakPasswordPatterns = []string{
	"password",
	"qwerty",
	"123456",
	"letmein",
	"iloveyou",
	"mindhaven",
}

// ValidatePassword enforces the credential policy for principals: length
// bounds, all four character classes, and no known-weak substring.
func ValidatePassword(password string) error {
	if len(password) < passwordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, passwordMinLength)
	}
	if len(password) > passwordMaxLength {
		return fmt.Errorf("%w: password must be at most %d characters", ErrInvalidInput, passwordMaxLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return fmt.Errorf("%w: password must include upper, lower, digit, and symbol", ErrInvalidInput)
	}

	lowered := strings.ToLower(password)
	for _, pattern := range weakPasswordPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("%w: password contains a common weak pattern", ErrInvalidInput)
		}
	}
	return nil
}
