package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the console
type Config struct {
	// Backend platform API
	API APIConfig

	// HTTP listener
	Listen ListenConfig

	// Local console database (sessions, audit log, cached stats)
	Database DatabaseConfig

	// Session storage
	Session SessionConfig

	// Logging Configuration
	Logging LoggingConfig

	// Background stats refresh (cron expression, empty = disabled)
	StatsRefreshSchedule string

	// Optional external screen catalog (empty = embedded catalog)
	ResourceCatalog string

	// reCAPTCHA site key passed through to the auth page
	RecaptchaSiteKey string
}

// APIConfig holds the backend REST API configuration
type APIConfig struct {
	BaseURL string
}

// ListenConfig holds the HTTP listener configuration
type ListenConfig struct {
	Addr string
}

// DatabaseConfig holds local database configuration
type DatabaseConfig struct {
	URL string
}

// SessionConfig holds session storage configuration
type SessionConfig struct {
	// Backend selects where credential slots live: "db" or "keyring"
	Backend string
	// Secret derives the at-rest token encryption key for the db backend
	Secret string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	apiBase := os.Getenv("API_BASE_URL")
	if apiBase == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if _, err := url.Parse(apiBase); err != nil {
		return nil, fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	sessionBackend := getenv("SESSION_BACKEND", "db")
	if sessionBackend != "db" && sessionBackend != "keyring" {
		return nil, fmt.Errorf("SESSION_BACKEND must be \"db\" or \"keyring\", got %q", sessionBackend)
	}

	return &Config{
		API: APIConfig{
			BaseURL: apiBase,
		},
		Listen: ListenConfig{
			Addr: getenv("LISTEN_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			URL: getenv("DATABASE_URL", "oredesk.sqlite"),
		},
		Session: SessionConfig{
			Backend: sessionBackend,
			Secret:  os.Getenv("SESSION_SECRET"),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		StatsRefreshSchedule: os.Getenv("STATS_REFRESH_SCHEDULE"),
		ResourceCatalog:      os.Getenv("RESOURCE_CATALOG"),
		RecaptchaSiteKey:     os.Getenv("RECAPTCHA_SITE_KEY"),
	}, nil
}
