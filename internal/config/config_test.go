package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "guild", cfg.UniquenessScope)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 45*time.Second, cfg.SessionTimeout)
	assert.Equal(t, 5*time.Second, cfg.SessionSweepInterval)
	assert.Equal(t, 5, cfg.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerResetTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/waypointd")
	t.Setenv("PORT", "9090")
	t.Setenv("UNIQUENESS_SCOPE", "guild-dimension")
	t.Setenv("SESSION_TIMEOUT", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "guild-dimension", cfg.UniquenessScope)
	assert.Equal(t, time.Minute, cfg.SessionTimeout)
	assert.Equal(t, "postgres://localhost/waypointd", cfg.DatabaseURL)
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		StorageDriver:        "memory",
		UniquenessScope:      "guild",
		SessionTimeout:       45 * time.Second,
		SessionSweepInterval: 5 * time.Second,
	}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StorageDriver = "sqlite" }},
		{"unknown scope", func(c *Config) { c.UniquenessScope = "global" }},
		{"zero session timeout", func(c *Config) { c.SessionTimeout = 0 }},
		{"negative sweep interval", func(c *Config) { c.SessionSweepInterval = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
