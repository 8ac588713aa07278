// Package validation provides input validation utilities for the forms
// collaborators submit.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 6
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Registration holds the raw sign-up form fields.
type Registration struct {
	Name     string
	Email    string
	Username string
	Password string
}

// ValidateUsername checks length and the allowed character set.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength {
		return fmt.Errorf("username must be at least %d characters", minUsernameLength)
	}
	if n > maxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores and dots")
	}
	return nil
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// ValidateEmail checks that email looks like an address.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("email address is invalid")
	}
	return nil
}

// Normalize trims the fields and lowercases the username.
func (r Registration) Normalize() Registration {
	return Registration{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Username: strings.ToLower(strings.TrimSpace(r.Username)),
		Password: r.Password,
	}
}

// Validate checks every field, reporting the first failure.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// ValidatePost checks the post form: media must be attached and the
// caption must not be blank.
func ValidatePost(caption, mediaURL string) error {
	if strings.TrimSpace(mediaURL) == "" {
		return fmt.Errorf("media is required")
	}
	if strings.TrimSpace(caption) == "" {
		return fmt.Errorf("caption is required")
	}
	return nil
}
