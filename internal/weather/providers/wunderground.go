package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultWundergroundBaseURL is the public API host.
const DefaultWundergroundBaseURL = "http://api.wunderground.com"

// ErrProviderRejected is returned when the provider answers with its error
// envelope (bad key, unknown location, ...).
var ErrProviderRejected = errors.New("provider rejected request")

// WundergroundOptions configures WundergroundProvider. Zero values fall back to
// production defaults.
type WundergroundOptions struct {
	BaseURL string
	Backoff *BackoffConfig

	// RequestsPerMinute caps outbound calls; 0 disables the limiter.
	RequestsPerMinute int
}

// WundergroundProvider implements weather.Provider for the Wunderground
// astronomy + hourly features.
type WundergroundProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWundergroundProvider(client *http.Client, opts WundergroundOptions) *WundergroundProvider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultWundergroundBaseURL
	}

	backoff := BackoffConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
	if opts.Backoff != nil {
		backoff = *opts.Backoff
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.RequestsPerMinute)
	}

	return &WundergroundProvider{
		name:    "wunderground",
		baseURL: base,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
			Limiter: limiter,
		},
		circuit: newCircuitBreaker("wunderground"),
	}
}

func (p *WundergroundProvider) Name() string {
	return p.name
}

// ForecastURL builds the request URL for settings.
func (p *WundergroundProvider) ForecastURL(settings weather.Settings) string {
	return fmt.Sprintf("%s/api/%s/features/astronomy/hourly/q/%s.json",
		p.baseURL, url.PathEscape(settings.APIKey), escapeLocation(settings.Location))
}

func (p *WundergroundProvider) FetchForecast(ctx context.Context, settings weather.Settings) (weather.RawForecastResponse, error) {
	if settings.APIKey == "" {
		return weather.RawForecastResponse{}, fmt.Errorf("wunderground api key is not configured")
	}
	if settings.Location == "" {
		return weather.RawForecastResponse{}, fmt.Errorf("wunderground location is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, p.ForecastURL(settings), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.RawForecastResponse{}, err
	}
	defer resp.Body.Close()

	var payload weather.RawForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.RawForecastResponse{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	if payload.Response != nil && payload.Response.Error != nil {
		e := payload.Response.Error
		return weather.RawForecastResponse{}, fmt.Errorf("%w: %s: %s", ErrProviderRejected, e.Type, e.Description)
	}

	return payload, nil
}

// escapeLocation escapes each path segment of a location such as
// "CA/Mountain_View" while keeping the separators.
func escapeLocation(location string) string {
	parts := strings.Split(strings.Trim(location, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
