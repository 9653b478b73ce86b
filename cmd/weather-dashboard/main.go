package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const appName = "weather-dashboard"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("ERROR: closing storage: %v", err)
		}
	}()

	settingsStore := settings.NewStore(kv, settings.DefaultKey)
	if seeded, err := settingsStore.Seed(ctx, cfg.SeedSettings); err != nil {
		log.Printf("ERROR: seeding settings from environment: %v", err)
	} else if seeded {
		log.Printf("INFO: seeded settings for %s from environment", cfg.SeedSettings.Location)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewWundergroundProvider(httpClient, providers.WundergroundOptions{
		BaseURL:           cfg.ProviderBaseURL,
		RequestsPerMinute: cfg.ProviderRatePerMin,
		Backoff: &providers.BackoffConfig{
			MaxRetries:      cfg.ProviderMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	})

	ctrl := dashboard.NewController(kv, settingsStore, provider, dashboard.Options{
		CacheKey:        dashboard.DefaultCacheKey,
		FreshnessWindow: cfg.CacheFreshness,
		Normalize: weather.NormalizeOptions{
			MaxPoints: cfg.MaxPoints,
			Units:     cfg.Units,
		},
	})
	if err := ctrl.Start(ctx); err != nil {
		// The error is kept in the dashboard snapshot; keep serving.
		log.Printf("ERROR: initial load: %v", err)
	}

	sched := scheduler.New(cfg.RefreshInterval, ctrl)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(appName, ctrl)

	go func() {
		log.Printf("INFO: %s listening on :%s", appName, cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
