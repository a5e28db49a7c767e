// Package config handles configuration for the auth server, layering
// defaults, a JSON file, GOPHAUTH_* environment variables and command-line
// flags, in that order.
package config

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/policy"
)

// Supported DatabaseDriver values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// MinSecretKeyLength is the shortest accepted HS256 signing secret, in bytes.
const MinSecretKeyLength = 32

// Config holds runtime settings for the auth server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP API.
//   - DatabaseDriver / DatabaseDSN: credential store backend and its DSN.
//   - SecretKey: HMAC secret for signing tokens (HS256).
//   - Issuer / Audience / TokenTTL: token identity and lifetime.
//   - BcryptCost: work factor for password hashing.
//   - StoreTimeout: per-statement bound on store calls.
//   - SeedAccounts: create the demo accounts on startup.
//   - Password*: password policy thresholds.
type Config struct {
	HTTPAddr        string        `env:"GOPHAUTH_HTTP_ADDR"`
	DatabaseDriver  string        `env:"GOPHAUTH_DATABASE_DRIVER"`
	DatabaseDSN     string        `env:"GOPHAUTH_DATABASE_DSN"`
	SecretKey       string        `env:"GOPHAUTH_SECRET_KEY"`
	Issuer          string        `env:"GOPHAUTH_ISSUER"`
	Audience        string        `env:"GOPHAUTH_AUDIENCE"`
	TokenTTL        time.Duration `env:"GOPHAUTH_TOKEN_TTL"`
	BcryptCost      int           `env:"GOPHAUTH_BCRYPT_COST"`
	StoreTimeout    time.Duration `env:"GOPHAUTH_STORE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"GOPHAUTH_SHUTDOWN_TIMEOUT"`
	LogLevel        string        `env:"GOPHAUTH_LOG_LEVEL"`
	SeedAccounts    bool          `env:"GOPHAUTH_SEED_ACCOUNTS"`

	PasswordRequiredLength         int  `env:"GOPHAUTH_PASSWORD_REQUIRED_LENGTH"`
	PasswordRequireDigit           bool `env:"GOPHAUTH_PASSWORD_REQUIRE_DIGIT"`
	PasswordRequireLowercase       bool `env:"GOPHAUTH_PASSWORD_REQUIRE_LOWERCASE"`
	PasswordRequireUppercase       bool `env:"GOPHAUTH_PASSWORD_REQUIRE_UPPERCASE"`
	PasswordRequireNonAlphanumeric bool `env:"GOPHAUTH_PASSWORD_REQUIRE_NON_ALPHANUMERIC"`
	PasswordRequiredUniqueChars    int  `env:"GOPHAUTH_PASSWORD_REQUIRED_UNIQUE_CHARS"`
}

// LoadDefaults populates Config with development defaults. SecretKey is left
// empty on purpose: Validate rejects it until one is configured.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "file:gophauth.db?_pragma=busy_timeout(5000)"
	c.Issuer = "gophauth"
	c.Audience = "gophauth-clients"
	c.TokenTTL = 60 * time.Minute
	c.BcryptCost = 10
	c.StoreTimeout = 5 * time.Second
	c.ShutdownTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.SeedAccounts = false

	p := policy.Default()
	c.PasswordRequiredLength = p.RequiredLength
	c.PasswordRequireDigit = p.RequireDigit
	c.PasswordRequireLowercase = p.RequireLowercase
	c.PasswordRequireUppercase = p.RequireUppercase
	c.PasswordRequireNonAlphanumeric = p.RequireNonAlphanumeric
	c.PasswordRequiredUniqueChars = p.RequiredUniqueChars
}

// PasswordPolicy returns the configured composition rules.
func (c *Config) PasswordPolicy() policy.Policy {
	return policy.Policy{
		RequiredLength:         c.PasswordRequiredLength,
		RequireDigit:           c.PasswordRequireDigit,
		RequireLowercase:       c.PasswordRequireLowercase,
		RequireUppercase:       c.PasswordRequireUppercase,
		RequireNonAlphanumeric: c.PasswordRequireNonAlphanumeric,
		RequiredUniqueChars:    c.PasswordRequiredUniqueChars,
	}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags. args are the process arguments without the program name. The
// result is not validated; call Validate before serving.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TokenOptions returns the issuance settings shared by the token issuer and
// validator.
func (c *Config) TokenOptions() auth.TokenOptions {
	return auth.TokenOptions{
		SigningKey: []byte(c.SecretKey),
		Issuer:     c.Issuer,
		Audience:   c.Audience,
		TTL:        c.TokenTTL,
	}
}
