package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Duration fields accept
// both "15m" strings and integer nanoseconds.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	DatabaseDriver  string         `json:"database_driver"`
	DatabaseDSN     string         `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	Issuer          string         `json:"issuer"`
	Audience        string         `json:"audience"`
	TokenTTL        timex.Duration `json:"token_ttl"`
	BcryptCost      int            `json:"bcrypt_cost"`
	StoreTimeout    timex.Duration `json:"store_timeout"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`
	SeedAccounts    bool           `json:"seed_accounts"`

	Password struct {
		RequiredLength         int  `json:"required_length"`
		RequireDigit           bool `json:"require_digit"`
		RequireLowercase       bool `json:"require_lowercase"`
		RequireUppercase       bool `json:"require_uppercase"`
		RequireNonAlphanumeric bool `json:"require_non_alphanumeric"`
		RequiredUniqueChars    int  `json:"required_unique_chars"`
	} `json:"password"`
}

// parseJson overlays the file named by -c/-config onto config. Keys absent
// from the file keep their current values. Without the flag it does nothing.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	fromJson(config, c)
	return nil
}

func toJson(config *Config) *JsonConfig {
	c := &JsonConfig{
		HTTPAddr:        config.HTTPAddr,
		DatabaseDriver:  config.DatabaseDriver,
		DatabaseDSN:     config.DatabaseDSN,
		SecretKey:       config.SecretKey,
		Issuer:          config.Issuer,
		Audience:        config.Audience,
		TokenTTL:        timex.Duration{Duration: config.TokenTTL},
		BcryptCost:      config.BcryptCost,
		StoreTimeout:    timex.Duration{Duration: config.StoreTimeout},
		ShutdownTimeout: timex.Duration{Duration: config.ShutdownTimeout},
		LogLevel:        config.LogLevel,
		SeedAccounts:    config.SeedAccounts,
	}
	c.Password.RequiredLength = config.PasswordRequiredLength
	c.Password.RequireDigit = config.PasswordRequireDigit
	c.Password.RequireLowercase = config.PasswordRequireLowercase
	c.Password.RequireUppercase = config.PasswordRequireUppercase
	c.Password.RequireNonAlphanumeric = config.PasswordRequireNonAlphanumeric
	c.Password.RequiredUniqueChars = config.PasswordRequiredUniqueChars
	return c
}

func fromJson(config *Config, c *JsonConfig) {
	config.HTTPAddr = c.HTTPAddr
	config.DatabaseDriver = c.DatabaseDriver
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.Issuer = c.Issuer
	config.Audience = c.Audience
	config.TokenTTL = c.TokenTTL.Duration
	config.BcryptCost = c.BcryptCost
	config.StoreTimeout = c.StoreTimeout.Duration
	config.ShutdownTimeout = c.ShutdownTimeout.Duration
	config.LogLevel = c.LogLevel
	config.SeedAccounts = c.SeedAccounts
	config.PasswordRequiredLength = c.Password.RequiredLength
	config.PasswordRequireDigit = c.Password.RequireDigit
	config.PasswordRequireLowercase = c.Password.RequireLowercase
	config.PasswordRequireUppercase = c.Password.RequireUppercase
	config.PasswordRequireNonAlphanumeric = c.Password.RequireNonAlphanumeric
	config.PasswordRequiredUniqueChars = c.Password.RequiredUniqueChars
}
