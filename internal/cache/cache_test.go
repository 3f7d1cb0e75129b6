package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gigshield/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("notice", "You have been deactivated")
	b := Key("notice", "You have been deactivated")
	c := Key("search", "You have been deactivated")

	if a != b {
		t.Error("Expected identical keys for identical input")
	}
	if a == c {
		t.Error("Expected namespaces to produce distinct keys")
	}
	if !strings.HasPrefix(a, "gigshield:v1:notice:") {
		t.Errorf("Unexpected key: %s", a)
	}
	if Key("kb", "ab", "c") == Key("kb", "a", "bc") {
		t.Error("Expected part boundaries to matter")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, Key("t", "1"), []byte("one"), 0))
	val, ok := c.Get(ctx, Key("t", "1"))
	require.True(t, ok)
	assert.Equal(t, "one", string(val))

	require.NoError(t, c.Delete(ctx, Key("t", "1")))
	_, ok = c.Get(ctx, Key("t", "1"))
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, Key("t", "2"), []byte("two"), 0))
	require.NoError(t, c.Set(ctx, "other", []byte("kept"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("t", "disk")

	require.NoError(t, c.Set(ctx, key, []byte("persisted"), 0))
	val, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "persisted", string(val))

	// Expire by moving the clock
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)

	assert.NoError(t, c.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := Key("t", "layer")

	require.NoError(t, NewDiskCache(dir, time.Hour).Set(ctx, key, []byte("from disk"), 0))

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	val, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "from disk", string(val))

	_, inMemory := c.memory.Get(ctx, key)
	assert.True(t, inMemory)

	require.NoError(t, c.Delete(ctx, key))
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	type payload struct {
		Name  string
		Count int
	}

	require.NoError(t, SetJSON(ctx, c, "p", payload{"a", 2}, 0))
	got, ok := GetJSON[payload](ctx, c, "p")
	require.True(t, ok)
	assert.Equal(t, payload{"a", 2}, got)

	_, ok = GetJSON[payload](ctx, nil, "p")
	assert.False(t, ok, "nil cache always misses")
	assert.NoError(t, SetJSON(ctx, nil, "p", payload{}, 0))
}

func TestNew(t *testing.T) {
	c, err := New(model.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(model.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(model.CacheConfig{Enabled: true, Backend: "layered", TTL: time.Minute, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LayeredCache{}, c)

	c, err = New(model.CacheConfig{Enabled: true, Backend: "redis", RedisAddr: "redis://localhost:6379/2"})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)

	_, err = New(model.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}
