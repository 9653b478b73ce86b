package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, store.BackendFile, cfg.Storage.Backend)
	assert.Equal(t, time.Hour, cfg.CacheFreshness)
	assert.Equal(t, weather.DefaultMaxPoints, cfg.MaxPoints)
	assert.Equal(t, weather.UnitsEnglish, cfg.Units)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("CACHE_FRESHNESS", "30m")
	t.Setenv("MAX_FORECAST_POINTS", "24")
	t.Setenv("TEMPERATURE_UNITS", "metric")
	t.Setenv("WEATHER_LOCATION", "CA/Mountain_View")
	t.Setenv("WUNDERGROUND_API_KEY", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, store.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, 30*time.Minute, cfg.CacheFreshness)
	assert.Equal(t, 24, cfg.MaxPoints)
	assert.Equal(t, weather.UnitsMetric, cfg.Units)
	assert.Equal(t, weather.Settings{Location: "CA/Mountain_View", APIKey: "abc"}, cfg.SeedSettings)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORAGE_BACKEND":     "etcd",
		"CACHE_FRESHNESS":     "an hour",
		"MAX_FORECAST_POINTS": "0",
		"TEMPERATURE_UNITS":   "kelvin",
		"REFRESH_INTERVAL":    "often",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
