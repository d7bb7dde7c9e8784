// Package validation vets user-supplied identifiers and credentials before
// they reach the services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	digitRegex    = regexp.MustCompile(`[0-9]`)
	specialRegex  = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePassword enforces the signup password policy: 12-128 bytes with at
// least one uppercase letter, one lowercase letter, one digit, and one
// punctuation character.
func ValidatePassword(password string) error {
	switch {
	case len(password) < 12:
		return fmt.Errorf("password needs at least 12 characters")
	case len(password) > 128:
		return fmt.Errorf("password is longer than 128 characters")
	case !strings.ContainsFunc(password, unicode.IsUpper):
		return fmt.Errorf("password needs an uppercase letter")
	case !strings.ContainsFunc(password, unicode.IsLower):
		return fmt.Errorf("password needs a lowercase letter")
	case !digitRegex.MatchString(password):
		return fmt.Errorf("password needs a digit")
	case !specialRegex.MatchString(password):
		return fmt.Errorf("password needs a punctuation character")
	}
	return nil
}

// ValidateUsername bounds the length and restricts names to a URL-safe
// charset. The first and last characters must be alphanumeric so names read
// cleanly in mentions and profile URLs.
func ValidateUsername(username string) error {
	if n := len(username); n < 3 || n > 30 {
		return fmt.Errorf("username must be 3-30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may use letters, digits, '_' and '-' only")
	}
	if strings.Trim(username, "_-") != username {
		return fmt.Errorf("username cannot begin or end with '_' or '-'")
	}
	return nil
}

// ValidateEmail is a light syntactic check. Deliverability is the mail
// system's problem; this only rejects obvious typos.
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email is longer than 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("malformed email address")
	}
	return nil
}
