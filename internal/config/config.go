package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         int
	DatabasePath       string
	SecretKey          string
	TokenTTL           time.Duration
	TokenSweepSchedule string // cron spec for clearing expired tokens
	CORSAllowedOrigins []string
	LogLevel           string
	LogFile            string // empty means stderr only
	AppEnv             string
}

// ErrMissingSecret is returned when SECRET_KEY is not configured.
var ErrMissingSecret = errors.New("SECRET_KEY is not set")

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8000")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	ttlStr := getEnv("TOKEN_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", ttlStr, err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", ttl)
	}

	secret := getEnv("SECRET_KEY", "")
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &Config{
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./athlete_performance.db"),
		SecretKey:          secret,
		TokenTTL:           ttl,
		TokenSweepSchedule: getEnv("TOKEN_SWEEP_SCHEDULE", "@every 15m"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		AppEnv:             getEnv("APP_ENV", "development"),
	}, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
