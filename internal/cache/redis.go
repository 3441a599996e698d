package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by the service.
const KeyPrefix = "popcornview:"

// Redis wraps a go-redis client with typed helpers for compressed JSON
// payloads and health checks.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0"). Call Ping to verify
// the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Key joins parts under KeyPrefix with ':'.
func Key(parts ...string) string {
	k := KeyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Get fetches key and decodes it into a T. Returns redis.Nil (see IsMiss)
// when the key does not exist.
func Get[T any](ctx context.Context, r *Redis, key string) (T, error) {
	var zero T
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return zero, err
	}
	var v T
	if err := decode(raw, &v); err != nil {
		return zero, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return v, nil
}

// Set encodes v and stores it under key with the given TTL. Zero TTL keeps
// the key until deleted.
func Set(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Fetch is the non-generic form of Get for callers that hold the Redis
// behind an interface. found is false on a miss.
func (r *Redis) Fetch(ctx context.Context, key string, dst any) (found bool, err error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if IsMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := decode(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Put is the non-generic form of Set.
func (r *Redis) Put(ctx context.Context, key string, v any, ttl time.Duration) error {
	return Set(ctx, r, key, v, ttl)
}

// Del deletes one or more exact keys.
func Del(ctx context.Context, r *Redis, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// PutIfAbsent stores v under key only when the key does not exist yet.
func (r *Redis) PutIfAbsent(ctx context.Context, key string, v any, ttl time.Duration) (stored bool, err error) {
	data, err := encode(v)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", key, err)
	}
	return r.client.SetNX(ctx, key, data, ttl).Result()
}

// Del is the method form of Del.
func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return Del(ctx, r, keys...)
}

// Lock is the method form of Lock.
func (r *Redis) Lock(ctx context.Context, key string, ttl, retry time.Duration) (unlock func(), err error) {
	return Lock(ctx, r, key, ttl, retry)
}
