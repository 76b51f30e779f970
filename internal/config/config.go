// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// External collaborators
	BackendURL      string
	BackendTimeout  time.Duration
	GeocoderURL     string
	GeocoderCountry string
	GeocoderTimeout time.Duration

	// Session storage
	RedisURL   string
	SessionTTL time.Duration

	// HTTP surface
	AllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8000"),
		BackendTimeout:  time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,
		GeocoderURL:     getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderCountry: getEnv("GEOCODER_COUNTRY", "gh"),
		GeocoderTimeout: time.Duration(getEnvInt("GEOCODER_TIMEOUT_SECONDS", 10)) * time.Second,

		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 720)) * time.Hour,

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),
	}

	// Validate required fields in production
	if cfg.Environment == "production" {
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("BACKEND_URL is required in production")
		}
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required in production")
		}
	}

	return cfg, nil
}

// Production reports whether secure-cookie and similar hardening applies.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
