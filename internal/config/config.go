package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// OpenWeatherAPIKey selects the keyed provider configuration when set;
	// empty means the no-key fallback chain is used.
	OpenWeatherAPIKey string

	// HTTPTimeout bounds each outbound provider call.
	HTTPTimeout time.Duration

	// NominatimUserAgent is the distinguishing client identifier the tertiary
	// geocoder requires.
	NominatimUserAgent string

	// DatabaseURL selects the Postgres store when set; empty means in-memory.
	DatabaseURL string

	// CacheMaxAge is how long cache entries are retained before the cleanup
	// job deletes them.
	CacheMaxAge time.Duration

	// CleanupInterval controls how often the cleanup job runs.
	CleanupInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.NominatimUserAgent = getenvDefault("NOMINATIM_USER_AGENT", "weatherhub/1.0 (+https://example.com)")

	timeout, err := getenvDuration("HTTP_TIMEOUT", "5s")
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	maxAge, err := getenvDuration("CACHE_MAX_AGE", "24h")
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_MAX_AGE: %w", err)
	}
	cfg.CacheMaxAge = maxAge

	interval, err := getenvDuration("CACHE_CLEANUP_INTERVAL", "1h")
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_CLEANUP_INTERVAL: %w", err)
	}
	cfg.CleanupInterval = interval

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}
