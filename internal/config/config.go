package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

type AppConfig struct {
	Port string

	// Storage backend for settings and the cached forecast.
	Storage store.Options

	// Provider access.
	ProviderBaseURL    string
	HTTPTimeout        time.Duration
	ProviderRatePerMin int
	ProviderMaxRetries int

	// CacheFreshness is how long a cached forecast is served before refetching.
	CacheFreshness time.Duration
	MaxPoints      int
	Units          weather.Units

	// RefreshInterval drives the background refresh (0 disables it).
	RefreshInterval time.Duration

	// Optional settings written on first run when nothing is stored.
	SeedSettings weather.Settings
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.Storage = store.Options{
		Backend:   getenvDefault("STORAGE_BACKEND", store.BackendFile),
		Path:      getenvDefault("STORAGE_PATH", "weather-dashboard.json"),
		RedisURL:  getenvDefault("REDIS_URL", "redis://localhost:6379/0"),
		KeyPrefix: getenvDefault("STORAGE_KEY_PREFIX", "weather-dashboard:"),
	}
	switch cfg.Storage.Backend {
	case store.BackendMemory, store.BackendFile, store.BackendRedis:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	cfg.ProviderBaseURL = getenvDefault("WUNDERGROUND_BASE_URL", providers.DefaultWundergroundBaseURL)
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.ProviderRatePerMin = getenvInt("PROVIDER_RATE_LIMIT_PER_MIN", 10)
	cfg.ProviderMaxRetries = getenvInt("PROVIDER_MAX_RETRIES", 3)

	if cfg.CacheFreshness, err = getenvDuration("CACHE_FRESHNESS", "1h"); err != nil {
		return nil, err
	}
	cfg.MaxPoints = getenvInt("MAX_FORECAST_POINTS", weather.DefaultMaxPoints)
	if cfg.MaxPoints <= 0 {
		return nil, fmt.Errorf("invalid MAX_FORECAST_POINTS: must be positive")
	}

	cfg.Units = weather.Units(getenvDefault("TEMPERATURE_UNITS", string(weather.UnitsEnglish)))
	if cfg.Units != weather.UnitsEnglish && cfg.Units != weather.UnitsMetric {
		return nil, fmt.Errorf("invalid TEMPERATURE_UNITS %q", cfg.Units)
	}

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.SeedSettings = weather.Settings{
		Location: os.Getenv("WEATHER_LOCATION"),
		APIKey:   os.Getenv("WUNDERGROUND_API_KEY"),
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
