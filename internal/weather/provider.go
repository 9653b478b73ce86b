package weather

import (
	"context"
)

// Provider abstracts the forecast data source (Wunderground today).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, settings Settings) (RawForecastResponse, error)
}
