package config

import (
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// Error describes an unusable setting. It matches common.ErrorConfiguration.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return common.ErrorConfiguration }

// Validate reports the first setting that would make the server unsafe or
// unable to start.
func (c *Config) Validate() error {
	switch {
	case c.SecretKey == "":
		return &Error{Field: "SecretKey", Reason: "not configured"}
	case len(c.SecretKey) < MinSecretKeyLength:
		return &Error{Field: "SecretKey", Reason: fmt.Sprintf("must be at least %d bytes", MinSecretKeyLength)}
	case c.Issuer == "":
		return &Error{Field: "Issuer", Reason: "not configured"}
	case c.Audience == "":
		return &Error{Field: "Audience", Reason: "not configured"}
	case c.TokenTTL <= 0:
		return &Error{Field: "TokenTTL", Reason: "must be positive"}
	case c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost):
		return &Error{Field: "BcryptCost", Reason: fmt.Sprintf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)}
	case c.StoreTimeout < 0:
		return &Error{Field: "StoreTimeout", Reason: "must not be negative"}
	case c.PasswordRequiredLength < 0 || c.PasswordRequiredUniqueChars < 0:
		return &Error{Field: "Password", Reason: "thresholds must not be negative"}
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			return &Error{Field: "DatabaseDSN", Reason: "not configured"}
		}
	case DriverMemory:
	default:
		return &Error{Field: "DatabaseDriver", Reason: fmt.Sprintf("unknown driver %q", c.DatabaseDriver)}
	}
	return nil
}
