/**
 * @description
 * Configuration loader for the FuelWatch backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL, fuel API credentials) are missing.
 * - Uses a Singleton-like pattern where Load() returns a Config struct.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	FuelAPI   FuelAPIConfig
	Postcodes PostcodesConfig
	Jobs      JobsConfig
	Alerts    AlertsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// FuelAPIConfig holds the upstream fuel pricing API endpoints and credentials
type FuelAPIConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration // per-request budget for station pages
	TokenTimeout time.Duration // per-request budget for the token endpoint
	MaxAttempts  int           // retry ceiling for transport/429/5xx failures
	RatePerMin   int           // token-bucket limit on page fetches
}

// PostcodesConfig holds the geocoding lookup settings
type PostcodesConfig struct {
	BaseURL string
	Timeout time.Duration
}

// JobsConfig holds scheduling and job-trigger settings
type JobsConfig struct {
	SyncInterval  time.Duration
	AlertInterval time.Duration
	TriggerSecret string // shared secret for the internal job-trigger endpoints
}

// AlertsConfig holds alert evaluation settings
type AlertsConfig struct {
	CooldownHours int
	DailyCap      int
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		FuelAPI: FuelAPIConfig{
			BaseURL:      getEnv("FUEL_API_BASE_URL", "https://api.fuelpricesdirect.co.uk/v1"),
			TokenURL:     getEnv("FUEL_API_TOKEN_URL", "https://auth.fuelpricesdirect.co.uk/oauth/token"),
			ClientID:     sanitizeCredential(getEnv("FUEL_API_CLIENT_ID", "")),
			ClientSecret: sanitizeCredential(getEnv("FUEL_API_CLIENT_SECRET", "")),
			Timeout:      time.Duration(getEnvAsInt("FUEL_API_TIMEOUT_SECONDS", 30)) * time.Second,
			TokenTimeout: time.Duration(getEnvAsInt("FUEL_API_TOKEN_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxAttempts:  getEnvAsInt("FUEL_API_MAX_ATTEMPTS", 4),
			RatePerMin:   getEnvAsInt("FUEL_API_RATE_PER_MIN", 120),
		},
		Postcodes: PostcodesConfig{
			BaseURL: getEnv("POSTCODES_BASE_URL", "https://api.postcodes.io"),
			Timeout: time.Duration(getEnvAsInt("POSTCODES_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Jobs: JobsConfig{
			SyncInterval:  time.Duration(getEnvAsInt("SYNC_INTERVAL_MINUTES", 30)) * time.Minute,
			AlertInterval: time.Duration(getEnvAsInt("ALERT_INTERVAL_MINUTES", 60)) * time.Minute,
			TriggerSecret: getEnv("JOB_TRIGGER_SECRET", ""),
		},
		Alerts: AlertsConfig{
			CooldownHours: getEnvAsInt("ALERT_COOLDOWN_HOURS", 24),
			DailyCap:      getEnvAsInt("ALERT_DAILY_CAP", 2),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.FuelAPI.MaxAttempts < 1 {
		return fmt.Errorf("FUEL_API_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.FuelAPI.ClientID == "" && cfg.Server.Env != "test" {
		// Warning: strictly required for the ingestion pipeline
		fmt.Println("Warning: FUEL_API_CLIENT_ID is missing. Station sync will fail.")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
