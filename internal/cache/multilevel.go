package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultL1TTL = time.Minute

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

// MultiLevelCache reads through an in-process L1 and an optional Redis L2.
// L2 calls go through a circuit breaker; while it is open the cache behaves
// as L1-only.
//
// Keys whose L2 delete failed are kept in pending. They are never read
// from L2 and the delete is retried before every later L2 call.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	l1TTL   time.Duration

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

func NewMultiLevelCache(redisCache *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		metrics: NewCacheMetrics(),
		l1TTL:   defaultL1TTL,
		pending: make(map[string]struct{}),
	}
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.l1.Set(key, data, minDuration(ttl, c.l1TTL))
	c.metrics.RecordSet()

	if c.l2 == nil {
		return nil
	}

	c.flushPending(ctx)
	err = c.breaker.Execute(func() error {
		return c.l2.SetRaw(ctx, key, data, ttl)
	})
	if err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	c.clearPending(key)
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, found := c.l1.Get(key); found {
		c.metrics.RecordHit()
		return decode(data, dest)
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	c.flushPending(ctx)
	if c.isPending(key) {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	var data []byte
	err := c.breaker.Execute(func() error {
		raw, err := c.l2.GetRaw(ctx, key)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		data = raw
		return err
	})
	if err != nil {
		c.metrics.RecordError()
		slog.Debug("cache L2 read failed", "key", key, "error", err)
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	if data == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	c.metrics.RecordHit()
	c.l1.Set(key, data, c.l1TTL)
	return decode(data, dest)
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	c.l1.Delete(keys...)
	c.metrics.RecordDelete()

	if c.l2 == nil {
		return nil
	}

	c.markPending(keys...)
	if err := c.flushPending(ctx); err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) markPending(keys ...string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for _, key := range keys {
		c.pending[key] = struct{}{}
	}
}

func (c *MultiLevelCache) clearPending(key string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	delete(c.pending, key)
}

func (c *MultiLevelCache) isPending(key string) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	_, ok := c.pending[key]
	return ok
}

func (c *MultiLevelCache) pendingKeys() []string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	keys := make([]string, 0, len(c.pending))
	for key := range c.pending {
		keys = append(keys, key)
	}
	return keys
}

// flushPending deletes every pending key from L2. Keys are only cleared
// once the delete succeeded.
func (c *MultiLevelCache) flushPending(ctx context.Context) error {
	keys := c.pendingKeys()
	if len(keys) == 0 {
		return nil
	}

	err := c.breaker.Execute(func() error {
		return c.l2.Delete(ctx, keys...)
	})
	if err != nil {
		slog.Debug("cache L2 delete still pending", "keys", keys, "error", err)
		return err
	}

	c.pendingMu.Lock()
	for _, key := range keys {
		delete(c.pending, key)
	}
	c.pendingMu.Unlock()
	return nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	metrics := c.metrics.GetStats()
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"metrics":  metrics,
		"hit_rate": c.metrics.HitRate(),
		"breaker":  c.breaker.GetStats(),
		"pending":  len(c.pendingKeys()),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}

	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 != nil {
		return c.l2.Health(ctx)
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a > 0 && a < b {
		return a
	}
	return b
}
