package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseDriver  string
	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	SlowQueryMillis int

	// Sessions
	RedisURL      string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool

	// Background Workers
	WorkerCount int

	// CORS
	AllowedOrigins []string

	// Login throttling, ulule/limiter format ("10-M")
	LoginRateLimit string

	// Initial administrator
	SeedAdminEmail    string
	SeedAdminPassword string

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		DatabaseDriver:    strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		SlowQueryMillis:   getEnvAsInt("DB_SLOW_QUERY_MS", 200),
		RedisURL:          getEnv("REDIS_URL", ""),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 8*time.Hour),
		SessionCookie:     getEnv("SESSION_COOKIE", "advance_session"),
		CookieSecure:      getEnvAsBool("COOKIE_SECURE", false),
		WorkerCount:       getEnvAsInt("WORKER_COUNT", 2),
		AllowedOrigins:    getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		LoginRateLimit:    getEnv("LOGIN_RATE_LIMIT", "10-M"),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required and mutually dependent settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.DatabaseDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (expected postgres or mysql)", c.DatabaseDriver)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.Environment == "production" && !c.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be enabled in production")
	}

	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		return fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool reads an environment variable as boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads an environment variable as time.Duration ("8h", "30m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
