package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisDeduper stores seen idempotency keys in Redis so every instance
// rejects a replayed command.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(scope, key string) string {
	return "idem:" + scope + ":" + key
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, scope, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(scope, key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key so the caller may retry.
func (r *RedisDeduper) Remove(ctx context.Context, scope, key string) error {
	return r.client.Del(ctx, r.key(scope, key)).Err()
}

// IdempotencyMiddleware rejects a repeated Idempotency-Key on the same route
// with 409. Keys of requests that did not succeed are released. When Redis is
// unreachable the request proceeds unguarded.
func IdempotencyMiddleware(d Deduper, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if d == nil {
			return next
		}
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
			if key == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			scope := c.Request().Method + " " + c.Path()

			added, err := d.Add(ctx, scope, key)
			if err != nil {
				logger.WithError(err).WithField("scope", scope).Warn("idempotency check failed")
				return next(c)
			}
			if !added {
				setErrorStage(c, "duplicate")
				return c.JSON(http.StatusConflict, errorResponse{Error: "Duplicate request"})
			}

			err = next(c)
			if status := c.Response().Status; err != nil || status < 200 || status >= 300 {
				if rerr := d.Remove(context.WithoutCancel(ctx), scope, key); rerr != nil {
					logger.WithError(rerr).WithField("scope", scope).Warn("release idempotency key")
				}
			}
			return err
		}
	}
}
