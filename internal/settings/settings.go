// Package settings persists the user's provider location and API key.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultKey is the storage entry holding serialized settings.
const DefaultKey = "settings"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so errors line up with form fields.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError maps field names to messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid settings: " + strings.Join(parts, ", ")
}

// Validate trims s and checks required fields.
func Validate(s weather.Settings) (weather.Settings, error) {
	s.Location = strings.TrimSpace(s.Location)
	s.APIKey = strings.TrimSpace(s.APIKey)

	err := validate.Struct(s)
	if err == nil {
		return s, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return s, err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "required"
		default:
			fields[fe.Field()] = "invalid"
		}
	}
	return s, &ValidationError{Fields: fields}
}

// Store reads and writes settings through a KV.
type Store struct {
	kv  store.KV
	key string
}

// NewStore creates a Store using key, or DefaultKey when key is empty.
func NewStore(kv store.KV, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Load returns the persisted settings. ok is false when nothing usable is
// stored; read and parse failures are logged, never returned.
func (s *Store) Load(ctx context.Context) (weather.Settings, bool) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("WARN: reading settings: %v", err)
		}
		return weather.Settings{}, false
	}

	var out weather.Settings
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("WARN: ignoring unparsable settings: %v", err)
		return weather.Settings{}, false
	}
	out, err = Validate(out)
	if err != nil {
		log.Printf("WARN: ignoring stored settings: %v", err)
		return weather.Settings{}, false
	}
	return out, true
}

// Save validates and persists s, returning the trimmed settings that were
// stored. Invalid input yields a *ValidationError and nothing is written.
func (s *Store) Save(ctx context.Context, candidate weather.Settings) (weather.Settings, error) {
	clean, err := Validate(candidate)
	if err != nil {
		return candidate, err
	}

	raw, err := json.Marshal(clean)
	if err != nil {
		return candidate, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		return candidate, fmt.Errorf("persist settings: %w", err)
	}
	return clean, nil
}

// Seed saves defaults when nothing usable is stored yet. It reports whether
// defaults were written.
func (s *Store) Seed(ctx context.Context, defaults weather.Settings) (bool, error) {
	if _, ok := s.Load(ctx); ok {
		return false, nil
	}
	if _, err := Validate(defaults); err != nil {
		return false, nil
	}
	if _, err := s.Save(ctx, defaults); err != nil {
		return false, err
	}
	return true, nil
}

// Change describes how a submission differs from the previous settings.
type Change struct {
	Location bool
	Any      bool
}

// Changed compares next against prev. A nil prev counts as a change of every
// field.
func Changed(prev *weather.Settings, next weather.Settings) Change {
	if prev == nil {
		return Change{Location: true, Any: true}
	}
	loc := prev.Location != next.Location
	return Change{
		Location: loc,
		Any:      loc || prev.APIKey != next.APIKey,
	}
}
