package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runConformance exercises the behaviour every provider must share
func runConformance(t *testing.T, m Memory) {
	t.Helper()
	ctx := context.Background()

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "k1", []byte(`{"a":1}`), time.Hour))

		got, err := m.Get(ctx, "k1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))

		ok, err := m.Exists(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, m.Delete(ctx, "k1"))
		ok, err = m.Exists(ctx, "k1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := m.Get(ctx, "absent")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrKeyNotFound))
	})

	t.Run("delete missing key", func(t *testing.T) {
		assert.NoError(t, m.Delete(ctx, "never-set"))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "k2", []byte("one"), 0))
		require.NoError(t, m.Set(ctx, "k2", []byte("two"), -1))
		got, err := m.Get(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})
}

func TestInMemoryStore(t *testing.T) {
	runConformance(t, NewInMemoryStore())
}

func TestInMemoryStore_Expiration(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Minute))
	require.NoError(t, store.Set(ctx, "forever", []byte("v"), -1))

	ok, _ := store.Exists(ctx, "short")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)

	ok, _ = store.Exists(ctx, "short")
	assert.False(t, ok)
	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	ok, _ = store.Exists(ctx, "forever")
	assert.True(t, ok)
}

func TestInMemoryStore_CopiesValues(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisMemory) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	m, err := NewRedisMemory(context.Background(), "redis://"+mr.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return mr, m
}

func TestRedisMemory(t *testing.T) {
	_, m := setupTestRedis(t)
	runConformance(t, m)
}

func TestRedisMemory_NamespaceAndTTL(t *testing.T) {
	mr, m := setupTestRedis(t)
	ctx := context.Background()

	m.SetTTL(30 * time.Second)
	require.NoError(t, m.Set(ctx, "cart:1", []byte("x"), 0))
	require.NoError(t, m.Set(ctx, "cart:2", []byte("y"), -1))

	assert.True(t, mr.Exists("test:cart:1"))
	assert.Equal(t, 30*time.Second, mr.TTL("test:cart:1"))
	assert.Equal(t, time.Duration(0), mr.TTL("test:cart:2"))

	mr.FastForward(time.Minute)
	_, err := m.Get(ctx, "cart:1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNewRedisMemory_InvalidURL(t *testing.T) {
	_, err := NewRedisMemory(context.Background(), "://nope", "")
	assert.Error(t, err)
}

func TestBadgerMemory(t *testing.T) {
	m, err := NewBadgerMemory("", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	runConformance(t, m)
}

func TestBadgerMemory_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m, err := NewBadgerMemory(dir, "")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "persisted", []byte("yes"), -1))
	require.NoError(t, m.Close())

	reopened, err := NewBadgerMemory(dir, "")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "yes", string(got))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	m, err := New(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, m)

	m, err = New(ctx, Options{Provider: ProviderBadger, DefaultTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &BadgerMemory{}, m)
	require.NoError(t, m.Close())

	_, err = New(ctx, Options{Provider: "etcd"})
	assert.Error(t, err)
}
