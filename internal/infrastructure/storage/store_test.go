package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedConfig "github.com/shoozy-shop/storefront/internal/shared/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

// exerciseStore runs the shared contract every Store must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "token", "abc"))
	require.NoError(t, s.Set(ctx, "userRole", "Staff"))

	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Set(ctx, "token", "def"))
	v, err = s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Delete(ctx, "token", "userRole", "missing"))
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "userRole")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "user", `{"id":7}`))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":7}`, v)
}

func TestRedisStore(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseStore(t, NewRedisStore(client, "storefront:session:"))
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, "storefront:session:")

	require.NoError(t, s.Set(context.Background(), "token", "abc"))

	v, err := mr.Get("storefront:session:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestNewDurable(t *testing.T) {
	s, closeFn, err := NewDurable(sharedConfig.SessionConfig{Store: "memory"}, sharedConfig.RedisConfig{})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &MemoryStore{}, s)

	_, _, err = NewDurable(sharedConfig.SessionConfig{Store: "etcd"}, sharedConfig.RedisConfig{})
	assert.Error(t, err)
}
