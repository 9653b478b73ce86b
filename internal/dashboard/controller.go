// Package dashboard drives the weather dashboard: it decides when to show the
// settings form, when the cached forecast can be reused, and when to hit the
// provider.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// State is the dashboard's UI state.
type State string

const (
	StateConfiguring State = "configuring"
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateError       State = "error"
)

const (
	// DefaultCacheKey is the storage entry holding the serialized DisplayModel.
	DefaultCacheKey = "data"
	// DefaultFreshnessWindow bounds provider usage to about once an hour.
	DefaultFreshnessWindow = time.Hour
)

var (
	// ErrBusy is returned when an operation would start a second fetch.
	ErrBusy = errors.New("a forecast fetch is already in progress")
	// ErrInvalidTransition is returned for events the current state does not accept.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
)

// Error kinds surfaced in snapshots.
const (
	KindFetch     = "fetch"
	KindMalformed = "malformed"
)

// FetchError is a classified fetch or normalization failure.
type FetchError struct {
	Kind string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func classify(err error) *FetchError {
	if errors.Is(err, weather.ErrMalformedResponse) {
		return &FetchError{Kind: KindMalformed, Err: err}
	}
	return &FetchError{Kind: KindFetch, Err: err}
}

// Options tunes the Controller. Zero values use the package defaults.
type Options struct {
	CacheKey        string
	FreshnessWindow time.Duration
	Normalize       weather.NormalizeOptions

	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a read-only copy of the dashboard for the presentation layer.
type Snapshot struct {
	State    State
	Model    *weather.DisplayModel
	Settings *weather.Settings
	Error    *FetchError
}

// Controller is the dashboard state machine. Methods are safe for concurrent
// use; at most one provider fetch runs at a time.
type Controller struct {
	mu sync.Mutex

	kv       store.KV
	settings *settings.Store
	provider weather.Provider
	opts     Options

	state   State
	busy    bool
	model   *weather.DisplayModel
	current *weather.Settings
	err     *FetchError
}

// NewController creates a Controller in the configuring state. Call Start to
// load persisted settings.
func NewController(kv store.KV, settingsStore *settings.Store, provider weather.Provider, opts Options) *Controller {
	if opts.CacheKey == "" {
		opts.CacheKey = DefaultCacheKey
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		kv:       kv,
		settings: settingsStore,
		provider: provider,
		opts:     opts,
		state:    StateConfiguring,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state, Error: c.err}
	if c.model != nil {
		m := c.model.Clone()
		snap.Model = &m
	}
	if c.current != nil {
		s := *c.current
		snap.Settings = &s
	}
	return snap
}

// Start loads persisted settings. Without usable settings the dashboard stays
// in configuring; otherwise it runs LoadOrFetch.
func (c *Controller) Start(ctx context.Context) error {
	s, ok := c.settings.Load(ctx)

	c.mu.Lock()
	if !ok {
		log.Printf("INFO: no usable settings stored; waiting for configuration")
		c.state = StateConfiguring
		c.mu.Unlock()
		return nil
	}
	c.current = &s
	c.mu.Unlock()

	return c.LoadOrFetch(ctx)
}

// LoadOrFetch serves the cached model when it is fresh, otherwise fetches,
// normalizes and caches a new one. Failures move the dashboard to the error
// state and are returned as *FetchError.
func (c *Controller) LoadOrFetch(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.current == nil {
		c.state = StateConfiguring
		c.mu.Unlock()
		return nil
	}
	current := *c.current
	c.busy = true
	c.state = StateLoading
	c.mu.Unlock()

	return c.finish(ctx, current)
}

// finish runs the load for a claimed busy slot and releases it.
func (c *Controller) finish(ctx context.Context, current weather.Settings) error {
	model, err := c.loadOrFetch(ctx, current)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.err = classify(err)
		c.state = StateError
		log.Printf("ERROR: loading forecast for %s: %v", current.Location, err)
		return c.err
	}
	c.model = &model
	c.err = nil
	c.state = StateReady
	return nil
}

func (c *Controller) loadOrFetch(ctx context.Context, s weather.Settings) (weather.DisplayModel, error) {
	now := c.opts.Now()

	if cached, ok := c.readCache(ctx); ok && !now.After(cached.Current.Add(c.opts.FreshnessWindow)) {
		log.Printf("DEBUG: cache hit for %s (current %s)", s.Location, cached.Current.Format(time.RFC3339))
		return cached, nil
	}

	log.Printf("DEBUG: fetching forecast for %s from %s", s.Location, c.provider.Name())
	raw, err := c.provider.FetchForecast(ctx, s)
	if err != nil {
		return weather.DisplayModel{}, err
	}

	model, err := weather.Normalize(raw, now, c.opts.Normalize)
	if err != nil {
		return weather.DisplayModel{}, err
	}

	if err := c.writeCache(ctx, model); err != nil {
		// The fresh model is still usable for this session.
		log.Printf("WARN: caching forecast: %v", err)
	}
	return model, nil
}

func (c *Controller) readCache(ctx context.Context) (weather.DisplayModel, bool) {
	raw, err := c.kv.Get(ctx, c.opts.CacheKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("WARN: reading cached forecast: %v", err)
		}
		return weather.DisplayModel{}, false
	}

	var model weather.DisplayModel
	if err := json.Unmarshal([]byte(raw), &model); err != nil {
		log.Printf("WARN: ignoring unparsable cached forecast: %v", err)
		return weather.DisplayModel{}, false
	}
	if model.Current.IsZero() || len(model.Items) == 0 {
		return weather.DisplayModel{}, false
	}
	return model, true
}

func (c *Controller) writeCache(ctx context.Context, model weather.DisplayModel) error {
	raw, err := json.Marshal(model)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, c.opts.CacheKey, string(raw))
}

// SubmitSettings applies a settings form submission. Invalid input returns a
// *settings.ValidationError and leaves the state untouched. A new location
// drops the cached forecast; any change persists the settings and reloads.
// An unchanged submission just closes the form.
func (c *Controller) SubmitSettings(ctx context.Context, candidate weather.Settings) error {
	clean, err := settings.Validate(candidate)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	change := settings.Changed(c.current, clean)
	if !change.Any {
		c.closeSettingsLocked()
		c.mu.Unlock()
		return nil
	}
	prevState := c.state
	c.busy = true
	c.state = StateLoading
	c.mu.Unlock()

	if err := c.applySettings(ctx, clean, change); err != nil {
		c.mu.Lock()
		c.busy = false
		c.state = prevState
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.current = &clean
	c.mu.Unlock()

	return c.finish(ctx, clean)
}

func (c *Controller) applySettings(ctx context.Context, clean weather.Settings, change settings.Change) error {
	if change.Location {
		if err := c.kv.Delete(ctx, c.opts.CacheKey); err != nil {
			return fmt.Errorf("invalidate cached forecast: %w", err)
		}
		log.Printf("INFO: location changed to %s; cached forecast dropped", clean.Location)
	}
	if _, err := c.settings.Save(ctx, clean); err != nil {
		return err
	}
	return nil
}

// closeSettingsLocked leaves the settings form without changes, returning to
// the state held before reconfiguration. Must be called with mu held.
func (c *Controller) closeSettingsLocked() {
	if c.state != StateConfiguring {
		return
	}
	switch {
	case c.err != nil:
		c.state = StateError
	case c.model != nil:
		c.state = StateReady
	}
}

// RequestReconfigure opens the settings form from ready or error. The
// snapshot keeps the current settings for prefilling.
func (c *Controller) RequestReconfigure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReady, StateError:
		c.state = StateConfiguring
		return nil
	case StateConfiguring:
		return nil
	default:
		return fmt.Errorf("%w: reconfigure while %s", ErrInvalidTransition, c.state)
	}
}

// Retry re-runs LoadOrFetch after a failure. Failures are never retried
// automatically.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	if st != StateError {
		return fmt.Errorf("%w: retry while %s", ErrInvalidTransition, st)
	}
	return c.LoadOrFetch(ctx)
}

// Refresh re-runs LoadOrFetch for a ready dashboard; the cache window still
// applies. Other states are left alone.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	if st != StateReady {
		return nil
	}
	return c.LoadOrFetch(ctx)
}
