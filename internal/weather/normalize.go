package weather

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxPoints bounds the chart to a little over a day of hourly samples.
const DefaultMaxPoints = 28

// Label layouts. The sunrise/sunset layout keeps the space after the colon
// ("7: 05"); the dashboard has always rendered it that way.
const (
	hourLabelLayout  = "3"
	clockLabelLayout = "3: 04"
)

// ErrMalformedResponse is returned when a payload cannot produce a display model.
var ErrMalformedResponse = errors.New("malformed forecast response")

// Units selects which temperature scale is read from the payload.
type Units string

const (
	UnitsEnglish Units = "english"
	UnitsMetric  Units = "metric"
)

// NormalizeOptions tunes Normalize. The zero value uses DefaultMaxPoints and
// english units.
type NormalizeOptions struct {
	MaxPoints int
	Units     Units
}

// Normalize maps a raw provider payload into a DisplayModel. now only anchors
// the current/sunrise/sunset timestamps to a date; it never filters samples.
func Normalize(raw RawForecastResponse, now time.Time, opts NormalizeOptions) (DisplayModel, error) {
	if raw.MoonPhase == nil {
		return DisplayModel{}, fmt.Errorf("%w: missing moon_phase", ErrMalformedResponse)
	}
	if len(raw.HourlyForecast) == 0 {
		return DisplayModel{}, fmt.Errorf("%w: no hourly samples", ErrMalformedResponse)
	}

	limit := opts.MaxPoints
	if limit <= 0 {
		limit = DefaultMaxPoints
	}
	samples := raw.HourlyForecast
	if len(samples) > limit {
		samples = samples[:limit]
	}

	loc := now.Location()
	model := DisplayModel{
		Current: anchor(now, raw.MoonPhase.CurrentTime),
		Sunrise: anchor(now, raw.MoonPhase.Sunrise),
		Sunset:  anchor(now, raw.MoonPhase.Sunset),
		Items:   make([]ForecastPoint, 0, len(samples)),
	}
	sunriseHour := model.Sunrise.Hour()
	sunsetHour := model.Sunset.Hour()

	var (
		first time.Time
		prior *HourlySample
	)
	for i := range samples {
		sample := &samples[i]
		ts := sampleTime(sample.FCTTime, loc)
		value := sample.temperature(opts.Units)

		offset := 0
		if prior == nil {
			first = ts
			model.High = value
			model.Low = value
		} else {
			offset = int(ts.Sub(first) / time.Hour)
			model.High = max(model.High, value)
			model.Low = min(model.Low, value)
		}

		hour := ts.Hour()
		var label string
		switch {
		case hour == sunriseHour:
			label = model.Sunrise.Format(clockLabelLayout)
		case hour == sunsetHour+1:
			label = model.Sunset.Format(clockLabelLayout)
		case prior == nil || prior.Condition != sample.Condition:
			label = ts.Format(hourLabelLayout)
		}

		model.Items = append(model.Items, ForecastPoint{
			ID:        int64(sample.FCTTime.Epoch),
			Label:     label,
			Value:     [2]float64{float64(offset), value},
			Condition: sample.Condition,
			Time:      ts,
			Dark:      hour <= sunriseHour || hour > sunsetHour,
		})
		prior = sample
	}

	return model, nil
}

func anchor(now time.Time, c ClockTime) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, c.Hour.Int(), c.Minute.Int(), 0, 0, now.Location())
}

func sampleTime(f FCTTime, loc *time.Location) time.Time {
	return time.Date(f.Year.Int(), time.Month(f.Month.Int()), f.Day.Int(), f.Hour.Int(), 0, 0, 0, loc)
}

func (s HourlySample) temperature(units Units) float64 {
	if units == UnitsMetric {
		return float64(s.Temp.Metric)
	}
	return float64(s.Temp.English)
}
