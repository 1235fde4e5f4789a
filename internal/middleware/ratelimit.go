package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Limiter counts requests per key in Redis with a fixed window.
type Limiter struct {
	rdb     *redis.Client
	env     string
	limit   int
	window  time.Duration
	policy  FailPolicy
	methods map[string]bool
}

// NewLimiter builds a limiter. Limiting is disabled in the test and
// development environments so local workflows are not throttled.
func NewLimiter(rdb *redis.Client, env string, limit int, window time.Duration, policy FailPolicy) *Limiter {
	return &Limiter{rdb: rdb, env: env, limit: limit, window: window, policy: policy}
}

// OnlyMethods restricts counting to the given HTTP methods.
func (l *Limiter) OnlyMethods(methods ...string) *Limiter {
	l.methods = make(map[string]bool, len(methods))
	for _, m := range methods {
		l.methods[m] = true
	}
	return l
}

// Allow increments the counter for resource/id and reports whether the
// request is within the limit.
func (l *Limiter) Allow(ctx context.Context, resource, id string) (bool, error) {
	switch l.env {
	case "test", "development", "":
		return true, nil
	}
	if l.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		l.rdb.Expire(ctx, key, l.window)
	}
	return cnt <= int64(l.limit), nil
}

// Handler returns a Fiber middleware keyed by client IP under resource.
func (l *Limiter) Handler(resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.methods != nil && !l.methods[c.Method()] {
			return c.Next()
		}

		allowed, err := l.Allow(c.UserContext(), resource, "ip:"+c.IP())
		if err != nil {
			if l.policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable, failing closed",
					"resource", resource, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
