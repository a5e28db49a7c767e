package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		base     Config
		expected Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-b", "postgres", "-d", "db", "-s", "secret",
				"-i", "iss", "-u", "aud", "-t", "30", "-l", "debug", "-seed",
			},
			expected: Config{
				HTTPAddr:       "127.0.0.1:9090",
				DatabaseDriver: "postgres",
				DatabaseDSN:    "db",
				SecretKey:      "secret",
				Issuer:         "iss",
				Audience:       "aud",
				TokenTTL:       30 * time.Minute,
				LogLevel:       "debug",
				SeedAccounts:   true,
			},
		},
		{
			name:     "unknown flags ignored, ttl kept",
			args:     []string{"-x", "1", "-c", "cfg.json"},
			base:     Config{TokenTTL: 90 * time.Second},
			expected: Config{TokenTTL: 90 * time.Second},
		},
		{
			name:    "bad int",
			args:    []string{"-t", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.base
			err := parseFlags(&config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
