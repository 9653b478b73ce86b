package weather

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// Condition is the provider's weather condition label (e.g. "Clear", "Overcast").
type Condition string

const (
	ConditionClear        Condition = "Clear"
	ConditionOvercast     Condition = "Overcast"
	ConditionPartlyCloudy Condition = "Partly Cloudy"
	ConditionMostlyCloudy Condition = "Mostly Cloudy"
	ConditionChanceOfRain Condition = "Chance of Rain"
)

var conditionColors = map[Condition]string{
	ConditionOvercast:     "#999999",
	ConditionClear:        "#ffcc33",
	ConditionPartlyCloudy: "#dddddd",
	ConditionMostlyCloudy: "#bbbbbb",
	ConditionChanceOfRain: "#99ccee",
}

// Color returns the background color used for the condition, or "" when the
// condition is not recognised.
func (c Condition) Color() string {
	if color, ok := conditionColors[c]; ok {
		return color
	}
	s := string(c)
	switch {
	case common.HasAny(s, "rain", "shower", "drizzle", "thunder"):
		return conditionColors[ConditionChanceOfRain]
	case common.HasAny(s, "overcast", "fog", "haze"):
		return conditionColors[ConditionOvercast]
	case common.HasAny(s, "partly", "scattered"):
		return conditionColors[ConditionPartlyCloudy]
	case common.HasAny(s, "cloudy"):
		return conditionColors[ConditionMostlyCloudy]
	case common.HasAny(s, "clear", "sunny"):
		return conditionColors[ConditionClear]
	default:
		return ""
	}
}

// Settings identifies what to fetch and how to authenticate with the provider.
type Settings struct {
	Location string `json:"location" validate:"required"`
	APIKey   string `json:"apiKey" validate:"required"`
}

// Number decodes provider numbers, which Wunderground sends as strings.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Int returns n truncated to an int.
func (n Number) Int() int {
	return int(n)
}

// ClockTime is an hour/minute pair from the astronomy block.
type ClockTime struct {
	Hour   Number `json:"hour"`
	Minute Number `json:"minute"`
}

// RawForecastResponse is the subset of the Wunderground astronomy+hourly
// payload we consume.
type RawForecastResponse struct {
	Response       *ProviderStatus `json:"response,omitempty"`
	HourlyForecast []HourlySample  `json:"hourly_forecast"`
	MoonPhase      *MoonPhase      `json:"moon_phase"`
}

// ProviderStatus carries the vendor error envelope, which is returned with
// HTTP 200.
type ProviderStatus struct {
	Error *ProviderError `json:"error,omitempty"`
}

type ProviderError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type MoonPhase struct {
	CurrentTime ClockTime `json:"current_time"`
	Sunrise     ClockTime `json:"sunrise"`
	Sunset      ClockTime `json:"sunset"`
}

type HourlySample struct {
	FCTTime   FCTTime     `json:"FCTTIME"`
	Condition Condition   `json:"condition"`
	Temp      Temperature `json:"temp"`
}

type FCTTime struct {
	Year  Number `json:"year"`
	Month Number `json:"mon"`
	Day   Number `json:"mday"`
	Hour  Number `json:"hour"`
	Epoch Number `json:"epoch"`
}

type Temperature struct {
	English Number `json:"english"`
	Metric  Number `json:"metric"`
}

// DisplayModel is the normalized, chart-ready view of a forecast.
// Items is never empty for a model produced by Normalize.
type DisplayModel struct {
	Current time.Time       `json:"current"`
	Sunrise time.Time       `json:"sunrise"`
	Sunset  time.Time       `json:"sunset"`
	Items   []ForecastPoint `json:"items"`
	High    float64         `json:"high"`
	Low     float64         `json:"low"`
}

// ForecastPoint is a single hourly sample on the chart.
// Value is [hours since first sample, temperature].
type ForecastPoint struct {
	ID        int64      `json:"id"`
	Label     string     `json:"label,omitempty"`
	Value     [2]float64 `json:"value"`
	Condition Condition  `json:"condition"`
	Time      time.Time  `json:"time"`
	Dark      bool       `json:"dark"`
}

// Offset returns the point's hour offset from the first sample.
func (p ForecastPoint) Offset() int {
	return int(p.Value[0])
}

// Temperature returns the point's temperature.
func (p ForecastPoint) Temperature() float64 {
	return p.Value[1]
}

// Bounds are the chart axis limits for a model.
type Bounds struct {
	X [2]int     `json:"x"`
	Y [2]float64 `json:"y"`
}

// Bounds rounds low down and high up to the nearest ten degrees.
func (m DisplayModel) Bounds() Bounds {
	return Bounds{
		X: [2]int{0, max(len(m.Items)-1, 0)},
		Y: [2]float64{math.Floor(m.Low/10) * 10, math.Ceil(m.High/10) * 10},
	}
}

// Clone returns a deep copy so callers cannot mutate shared items.
func (m DisplayModel) Clone() DisplayModel {
	out := m
	out.Items = append([]ForecastPoint(nil), m.Items...)
	return out
}
