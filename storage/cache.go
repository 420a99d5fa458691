package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
	Delete(ctx context.Context) error
	Close() error
}

// Cache serves board reads from Redis and falls back to the wrapped store.
// Writes go to the wrapped store first and then evict the cached copy.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
	key   string
}

// NewCache creates a read-through cache in front of base.
func NewCache(base backend, client *redis.Client, key string, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
		key:   key,
	}
}

func (c *Cache) Load(ctx context.Context) ([]byte, error) {
	if data, ok := c.loadFromCache(ctx); ok {
		return data, nil
	}

	data, err := c.base.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data != nil {
		c.store(ctx, data)
	}
	return data, nil
}

func (c *Cache) Save(ctx context.Context, raw []byte) error {
	if err := c.base.Save(ctx, raw); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) Delete(ctx context.Context) error {
	if err := c.base.Delete(ctx); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) Close() error { return c.base.Close() }

func (c *Cache) loadFromCache(ctx context.Context) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.cacheKey()).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, c.cacheKey()).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) store(ctx context.Context, data []byte) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	_ = c.redis.Set(ctx, c.cacheKey(), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, c.cacheKey()).Err()
}

func (c *Cache) cacheKey() string {
	return "cache:" + c.key
}
