package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedTodo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status bool   `json:"status"`
}

func TestMultiLevelCache_L1Only(t *testing.T) {
	c := NewMultiLevelCache(nil)
	ctx := context.Background()

	var out cachedTodo
	assert.ErrorIs(t, c.Get(ctx, "todo:1", &out), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "todo:1", cachedTodo{ID: "1", Name: "Buy milk"}, time.Minute))
	require.NoError(t, c.Get(ctx, "todo:1", &out))
	assert.Equal(t, "Buy milk", out.Name)

	require.NoError(t, c.Delete(ctx, "todo:1"))
	assert.ErrorIs(t, c.Get(ctx, "todo:1", &out), ErrCacheMiss)

	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Close())

	stats := c.Stats()
	assert.NotContains(t, stats, "l2")
	assert.Contains(t, stats, "hit_rate")
}

func TestMultiLevelCache_WritesThroughToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()

	c := NewMultiLevelCache(NewRedisCache(config))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "todos:all", []cachedTodo{{ID: "1"}}, 10*time.Minute))

	assert.True(t, mr.Exists("todo-api:todos:all"))
	assert.Equal(t, 10*time.Minute, mr.TTL("todo-api:todos:all"))
	assert.Contains(t, c.Stats(), "l2")
}

func TestMultiLevelCache_PopulatesL1FromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()

	c := NewMultiLevelCache(NewRedisCache(config))
	defer c.Close()
	ctx := context.Background()

	mr.Set("todo-api:todo:7", `{"id":"7","name":"Walk dog","status":true}`)

	var out cachedTodo
	require.NoError(t, c.Get(ctx, "todo:7", &out))
	assert.Equal(t, cachedTodo{ID: "7", Name: "Walk dog", Status: true}, out)

	mr.Del("todo-api:todo:7")

	var again cachedTodo
	require.NoError(t, c.Get(ctx, "todo:7", &again), "second read is served from L1")
	assert.Equal(t, out, again)
}

func TestMultiLevelCache_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1

	c := NewMultiLevelCache(NewRedisCache(config))
	defer c.Close()
	ctx := context.Background()

	mr.Close()

	err := c.Set(ctx, "todo:1", cachedTodo{ID: "1"}, time.Minute)
	assert.True(t, errors.Is(err, ErrCacheDown))

	var out cachedTodo
	require.NoError(t, c.Get(ctx, "todo:1", &out), "L1 still serves the value")
	assert.Equal(t, "1", out.ID)

	err = c.Get(ctx, "todo:2", &out)
	assert.ErrorIs(t, err, ErrCacheDown)
}

func TestMultiLevelCache_BreakerOpensAfterFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1

	c := NewMultiLevelCache(NewRedisCache(config))
	defer c.Close()
	ctx := context.Background()

	mr.Close()

	var out cachedTodo
	for i := 0; i < 5; i++ {
		c.Get(ctx, "missing", &out)
	}

	assert.Equal(t, CircuitBreakerOpen, c.breaker.GetState())

	err := c.Get(ctx, "missing", &out)
	assert.ErrorIs(t, err, ErrCacheDown)
	assert.ErrorContains(t, err, ErrCircuitBreakerOpen.Error())
}

func TestMultiLevelCache_FailedDeleteNeverResurfaces(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1

	c := NewMultiLevelCache(NewRedisCache(config))
	defer c.Close()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.l1.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "todos:all", []cachedTodo{{ID: "old"}}, 10*time.Minute))

	mr.SetError("LOADING transient")
	err := c.Delete(ctx, "todos:all")
	assert.ErrorIs(t, err, ErrCacheDown)
	assert.Equal(t, 1, c.Stats()["pending"])

	var out []cachedTodo
	assert.ErrorIs(t, c.Get(ctx, "todos:all", &out), ErrCacheMiss, "pending key is not read from redis")

	mr.SetError("")
	now = now.Add(2 * defaultL1TTL)

	assert.ErrorIs(t, c.Get(ctx, "todos:all", &out), ErrCacheMiss)
	assert.False(t, mr.Exists("todo-api:todos:all"), "pending delete is replayed once redis recovers")
	assert.Equal(t, 0, c.Stats()["pending"])
}

func TestMultiLevelCache_SetClearsPendingDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1

	c := NewMultiLevelCache(NewRedisCache(config))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "todos:all", []cachedTodo{{ID: "old"}}, time.Minute))

	mr.SetError("LOADING transient")
	assert.Error(t, c.Delete(ctx, "todos:all"))
	mr.SetError("")

	require.NoError(t, c.Set(ctx, "todos:all", []cachedTodo{{ID: "new"}}, time.Minute))
	assert.Equal(t, 0, c.Stats()["pending"])

	raw, err := c.l2.GetRaw(ctx, "todos:all")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"new","name":"","status":false}]`, string(raw))
}
