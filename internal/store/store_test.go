package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "settings")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "settings", `{"location":"CA/Mountain_View"}`))
	v, err := kv.Get(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, `{"location":"CA/Mountain_View"}`, v)

	require.NoError(t, kv.Set(ctx, "settings", "replaced"))
	v, err = kv.Get(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, "replaced", v)

	require.NoError(t, kv.Delete(ctx, "settings"))
	_, err = kv.Get(ctx, "settings")
	require.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	require.NoError(t, kv.Delete(ctx, "settings"))
}

func TestMemoryStore(t *testing.T) {
	exerciseKV(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseKV(t, fs)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "data", "cached"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(ctx, "data")
	require.NoError(t, err)
	assert.Equal(t, "cached", v)
}

func TestFileStoreUnreadableDocumentStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = fs.Get(context.Background(), "settings")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "etcd"})
	assert.Error(t, err)
}

func TestOpenMemoryBackend(t *testing.T) {
	kv, closeFn, err := Open(context.Background(), Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, kv)
	assert.NoError(t, closeFn())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	exerciseKV(t, NewRedisStoreFromClient(client, "weather-dashboard-test:"))
}
