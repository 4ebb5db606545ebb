package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"crewdesk/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetJSON when the key is absent or caching is disabled.
var ErrCacheMiss = errors.New("cache miss")

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// GetJSON fetches key and unmarshals its JSON value into dest.
func GetJSON(ctx context.Context, key string, dest interface{}) error {
	if client == nil {
		return ErrCacheMiss
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.RecordCacheMiss(keyPrefix(key))
			return ErrCacheMiss
		}
		return err
	}

	observability.RecordCacheHit(keyPrefix(key))
	return json.Unmarshal(raw, dest)
}

// SetJSON marshals value to JSON and stores it under key with the given TTL.
// A nil client makes this a no-op.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// CacheAside returns the cached value under key when present, otherwise loads
// it, stores the result and returns it. Loader errors are returned as-is;
// cache write failures are swallowed since the loaded value is still usable.
func CacheAside[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if err := GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	}

	loaded, err := load(ctx)
	if err != nil {
		return loaded, err
	}

	_ = SetJSON(ctx, key, loaded, ttl)
	return loaded, nil
}
