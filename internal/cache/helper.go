package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"blogicum/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON reads key and unmarshals it into dest. A miss, or no Redis
// configured at all, comes back as (false, nil).
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		observability.CacheMisses.WithLabelValues(prefixOf(key)).Inc()
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	observability.CacheHits.WithLabelValues(prefixOf(key)).Inc()
	return true, nil
}

// SetJSON stores v under key for ttl. With no Redis configured it is a no-op.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside is the cache-aside read path: serve the cached value when present,
// otherwise run fetch and keep whatever it wrote into dest. The write back
// to Redis is best effort; a failed SET never fails the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

func prefixOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
