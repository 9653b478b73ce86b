package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var testNow = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)

type stubProvider struct {
	err error
}

func (stubProvider) Name() string { return "stub" }

func (p stubProvider) FetchForecast(context.Context, weather.Settings) (weather.RawForecastResponse, error) {
	if p.err != nil {
		return weather.RawForecastResponse{}, p.err
	}
	raw := weather.RawForecastResponse{
		MoonPhase: &weather.MoonPhase{
			CurrentTime: weather.ClockTime{Hour: 10},
			Sunrise:     weather.ClockTime{Hour: 7, Minute: 5},
			Sunset:      weather.ClockTime{Hour: 18, Minute: 22},
		},
	}
	for i, temp := range []float64{48, 55, 71} {
		ts := testNow.Add(time.Duration(i) * time.Hour)
		raw.HourlyForecast = append(raw.HourlyForecast, weather.HourlySample{
			FCTTime: weather.FCTTime{
				Year: weather.Number(ts.Year()), Month: weather.Number(ts.Month()),
				Day: weather.Number(ts.Day()), Hour: weather.Number(ts.Hour()),
				Epoch: weather.Number(ts.Unix()),
			},
			Condition: weather.ConditionClear,
			Temp:      weather.Temperature{English: weather.Number(temp)},
		})
	}
	return raw, nil
}

func newTestApp(t *testing.T, provider weather.Provider) (*fiber.App, *dashboard.Controller) {
	t.Helper()
	kv := store.NewMemoryStore()
	ctrl := dashboard.NewController(kv, settings.NewStore(kv, ""), provider, dashboard.Options{
		Now: func() time.Time { return testNow },
	})
	require.NoError(t, ctrl.Start(context.Background()))

	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
	})
	RegisterRoutes(app, ctrl)
	return app, ctrl
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestDashboardStartsConfiguring(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{})

	status, body := do(t, app, http.MethodGet, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "configuring", body["state"])
	assert.NotContains(t, body, "model")
}

func TestSubmitSettingsValidation(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{})

	status, body := do(t, app, http.MethodPut, "/api/v1/settings", `{"location":"","apiKey":"k"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, map[string]any{"location": "required"}, body["fields"])
}

func TestSubmitSettingsBadPayload(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{})

	status, body := do(t, app, http.MethodPut, "/api/v1/settings", `{"location":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, true, body["error"])
}

func TestSubmitSettingsLoadsForecast(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{})

	status, body := do(t, app, http.MethodPut, "/api/v1/settings", `{"location":"CA/Mountain_View","apiKey":"k"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["state"])

	model, ok := body["model"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 71.0, model["high"])
	assert.Len(t, model["items"], 3)

	chart, ok := body["chart"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "#ffcc33", chart["background"])
	assert.Equal(t, map[string]any{"x": []any{0.0, 2.0}, "y": []any{40.0, 80.0}}, chart["bounds"])
}

func TestFetchFailureIsReportedInSnapshot(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{err: errors.New("upstream down")})

	status, body := do(t, app, http.MethodPut, "/api/v1/settings", `{"location":"CA/Mountain_View","apiKey":"k"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "error", body["state"])

	errView, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fetch", errView["kind"])
	assert.Contains(t, errView["message"], "upstream down")
}

func TestRetryRequiresErrorState(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{})

	status, body := do(t, app, http.MethodPost, "/api/v1/dashboard/retry", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, true, body["error"])
}

func TestReconfigure(t *testing.T) {
	app, _ := newTestApp(t, stubProvider{})

	status, _ := do(t, app, http.MethodPut, "/api/v1/settings", `{"location":"CA/Mountain_View","apiKey":"k"}`)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, app, http.MethodPost, "/api/v1/settings/reconfigure", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "configuring", body["state"])
	assert.Equal(t, map[string]any{"location": "CA/Mountain_View", "apiKey": "k"}, body["settings"])
}

func TestNewAppHealth(t *testing.T) {
	kv := store.NewMemoryStore()
	ctrl := dashboard.NewController(kv, settings.NewStore(kv, ""), stubProvider{}, dashboard.Options{})
	app := NewApp("weather-dashboard", ctrl)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
