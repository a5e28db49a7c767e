package models

import (
	"strings"
	"time"
)

// Account is a registered identity. PasswordHash never leaves the server.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     *string
	LastName      *string
	CreatedAt     time.Time
	LastLoginDate *time.Time
}

// NormalizeEmail returns the lookup key used for case-insensitive email matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizedEmail returns the account's lookup key.
func (a *Account) NormalizedEmail() string {
	return NormalizeEmail(a.Email)
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.FirstName = cloneString(a.FirstName)
	c.LastName = cloneString(a.LastName)
	if a.LastLoginDate != nil {
		t := *a.LastLoginDate
		c.LastLoginDate = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
