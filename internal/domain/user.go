// Package domain contains records without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxNicknameLen = 36

var (
	ErrEmailEmpty      = errors.New("email is required")
	ErrPasswordEmpty   = errors.New("password is required")
	ErrNicknameEmpty   = errors.New("nickname is required")
	ErrNicknameTooLong = errors.New("nickname too long")
)

type UserID int64

type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Provider  string    `json:"provider"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrEmailEmpty
	}
	if strings.TrimSpace(c.Password) == "" {
		return ErrPasswordEmpty
	}
	return nil
}

func (r Registration) Validate() error {
	if err := (Credentials{Email: r.Email, Password: r.Password}).Validate(); err != nil {
		return err
	}
	nick := strings.TrimSpace(r.Nickname)
	if nick == "" {
		return ErrNicknameEmpty
	}
	if utf8.RuneCountInString(nick) > MaxNicknameLen {
		return ErrNicknameTooLong
	}
	return nil
}
