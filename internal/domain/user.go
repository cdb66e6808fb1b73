// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLen = 128 // characters, not bytes
	MaxEmailLen    = 254
	DefaultName    = "User"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrEmailInvalid    = errors.New("email invalid")
)

// Identity is the verified user a client joins matchmaking as.
// It is immutable once a session begins.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
}

// NewIdentity trims and validates email and display name.
func NewIdentity(email, name string) (Identity, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return Identity{}, err
	}
	if err := validateUsername(name); err != nil {
		return Identity{}, err
	}
	return Identity{Email: email, DisplayName: name}, nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLen {
		return ErrEmailInvalid
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') || at == len(email)-1 {
		return ErrEmailInvalid
	}
	return nil
}

func validateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if utf8.RuneCountInString(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
