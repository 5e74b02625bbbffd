// Package validation provides input validation utilities.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
	MaxBioLength      = 500
	MaxLocationLength = 100
	MaxURLLength      = 2048
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidatePassword checks password length. bcrypt rejects input longer than 72 bytes, so the cap is in bytes.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidateUsername checks if a username meets requirements.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return errors.New("username must not exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username can only contain letters, numbers, underscores, and hyphens")
	}
	first, last := username[0], username[len(username)-1]
	if first == '_' || first == '-' || last == '_' || last == '-' {
		return errors.New("username cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateImageURL accepts an empty value, a site-relative path or an http(s) URL.
func ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > MaxURLLength {
		return fmt.Errorf("URL must not exceed %d characters", MaxURLLength)
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL or a path starting with /")
	}
	return nil
}

// ValidateMessageText checks that text is non-blank and at most maxLen characters.
func ValidateMessageText(text string, maxLen int) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("message cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxLen {
		return fmt.Errorf("message must not exceed %d characters", maxLen)
	}
	return nil
}

// ValidateMaxLength checks that value has at most max characters.
func ValidateMaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return nil
}

// Errors collects per-field validation failures.
type Errors map[string]string

// Check records err under field when err is non-nil and the field has no error yet.
func (e Errors) Check(field string, err error) {
	if err == nil {
		return
	}
	if _, exists := e[field]; !exists {
		e[field] = err.Error()
	}
}

// Empty reports whether no failures were recorded.
func (e Errors) Empty() bool {
	return len(e) == 0
}
