package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("key not found")
)

// KV is an opaque string store keyed by name.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend   string
	Path      string // file backend
	RedisURL  string // redis backend
	KeyPrefix string
}

// Open builds the configured backend. The returned close func releases any
// connection held by the backend.
func Open(ctx context.Context, opts Options) (KV, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), noop, nil
	case BackendFile:
		fs, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	case BackendRedis:
		rs, err := NewRedisStore(ctx, opts.RedisURL, opts.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
