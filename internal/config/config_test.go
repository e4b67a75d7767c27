package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/advance")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "advance_session", cfg.SessionCookie)
	assert.Equal(t, "10-M", cfg.LoginRateLimit)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/advance")
	t.Setenv("DATABASE_DRIVER", "MySQL")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("ALLOWED_ORIGINS", "https://hr.example.com, https://admin.example.com,")
	t.Setenv("WORKER_COUNT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DatabaseDriver)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://hr.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 2, cfg.WorkerCount)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment:    "development",
			DatabaseDriver: "postgres",
			DatabaseURL:    "postgres://localhost/advance",
			SessionTTL:     time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL is required"},
		{name: "bad driver", mutate: func(c *Config) { c.DatabaseDriver = "oracle" }, wantErr: "unsupported DATABASE_DRIVER"},
		{name: "zero ttl", mutate: func(c *Config) { c.SessionTTL = 0 }, wantErr: "SESSION_TTL"},
		{name: "insecure production cookie", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "COOKIE_SECURE"},
		{name: "half seeded admin", mutate: func(c *Config) { c.SeedAdminEmail = "admin@example.com" }, wantErr: "SEED_ADMIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
