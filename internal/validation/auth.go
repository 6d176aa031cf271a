// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Password limits.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidatePassword checks the length rules for a new password.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("Password must be at least %d characters long.", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("Password must not exceed %d characters.", MaxPasswordLength)
	}
	return nil
}

// ValidatePasswordConfirmation checks a new password and its confirmation.
func ValidatePasswordConfirmation(password, confirm string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("Passwords do not match.")
	}
	return nil
}

// ValidateDisplayName checks a member's display name. Spaces are allowed;
// uniqueness is checked by the caller.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < 2 {
		return fmt.Errorf("Name must be at least 2 characters long.")
	}
	if n > 50 {
		return fmt.Errorf("Name must not exceed 50 characters.")
	}
	if strings.ContainsAny(name, "@<>") {
		return fmt.Errorf("Name cannot contain @, < or >.")
	}
	return nil
}

// ValidateEmail checks that email is a single bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("Email is required.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("Please enter a valid email address.")
	}
	return nil
}

// ValidateVerificationCode checks the shape of a six digit code.
func ValidateVerificationCode(code string) error {
	if !codePattern.MatchString(strings.TrimSpace(code)) {
		return fmt.Errorf("Invalid or expired code. Please try again.")
	}
	return nil
}
