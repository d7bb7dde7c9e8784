// Package cache provides Redis-backed caching for feeds and read-heavy
// lookups. Every helper is a no-op when no client is configured; the
// application treats the cache as an optional accelerator, never a
// dependency.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"blogicum/internal/middleware"
	"blogicum/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errorCountingHook feeds the Redis error-rate metric. redis.Nil is a cache
// miss, not an error, and is not counted.
type errorCountingHook struct{}

func (errorCountingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCountingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorCountingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// InitRedis connects the package-level client. addr may be a bare host:port
// or a redis:// URL. Any failure leaves the client nil, which turns every
// cache helper into a pass-through.
func InitRedis(addr string) {
	opts, err := redisOptions(addr)
	if err != nil {
		middleware.Logger.Warn("Invalid Redis address, continuing without cache",
			slog.String("addr", addr), slog.String("error", err.Error()))
		client = nil
		return
	}

	c := redis.NewClient(opts)
	c.AddHook(errorCountingHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable, continuing without cache",
			slog.String("error", err.Error()))
		client = nil
		return
	}

	middleware.Logger.Info("Redis connected", slog.String("addr", opts.Addr))
	client = c
}

func redisOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// GetClient returns the connected client, or nil when the cache is disabled.
func GetClient() *redis.Client {
	return client
}
