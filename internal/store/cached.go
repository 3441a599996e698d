package store

import (
	"context"
	"time"

	"github.com/voyagen/popcornview/internal/cache"
	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
)

const (
	ttlHidden = 10 * time.Minute
	ttlFill   = time.Minute
	lockTTL   = 10 * time.Second
	lockRetry = 25 * time.Millisecond
)

// listCache is the subset of *cache.Redis used by CachedStore.
type listCache interface {
	Fetch(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, v any, ttl time.Duration) error
	PutIfAbsent(ctx context.Context, key string, v any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Lock(ctx context.Context, key string, ttl, retry time.Duration) (func(), error)
}

// CachedStore wraps a Visibility with a Redis read-through cache. Mutations
// take a per-scope Redis lock so that instances sharing one backend do not
// interleave their read-modify-write cycles, and write the new list to the
// cache before releasing it. Read misses only fill an absent key, so a
// reader holding a list from before a mutation cannot replace the newer one.
type CachedStore struct {
	inner Visibility
	cache listCache
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Visibility, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

func hiddenKey(scope Scope) string { return cache.Key("hidden", scope.Key()) }
func lockKey(scope Scope) string   { return cache.Key("lock", "hidden", scope.Key()) }

func (c *CachedStore) Hidden(ctx context.Context, scope Scope) ([]models.ID, error) {
	key := hiddenKey(scope)
	var cached []models.ID
	found, err := c.cache.Fetch(ctx, key, &cached)
	if err != nil {
		logger.Warnf("cache: get %s: %v", key, err)
	}
	if found {
		if cached == nil {
			cached = []models.ID{}
		}
		return cached, nil
	}
	ids, err := c.inner.Hidden(ctx, scope)
	if err != nil {
		return nil, err
	}
	if _, err := c.cache.PutIfAbsent(ctx, key, ids, ttlFill); err != nil {
		logger.Warnf("cache: fill %s: %v", key, err)
	}
	return ids, nil
}

func (c *CachedStore) IsVisible(ctx context.Context, scope Scope, id models.ID) (bool, error) {
	hidden, err := c.Hidden(ctx, scope)
	if err != nil {
		return false, err
	}
	_, isHidden := HiddenSet(hidden)[models.NormalizeID(id.String())]
	return !isHidden, nil
}

func (c *CachedStore) Hide(ctx context.Context, scope Scope, id models.ID) error {
	return c.locked(ctx, scope, func() error { return c.inner.Hide(ctx, scope, id) })
}

func (c *CachedStore) Show(ctx context.Context, scope Scope, id models.ID) error {
	return c.locked(ctx, scope, func() error { return c.inner.Show(ctx, scope, id) })
}

func (c *CachedStore) Close() error {
	return c.inner.Close()
}

// locked runs fn under the scope lock and then stores the resulting list.
// When the list cannot be stored the key is dropped instead.
func (c *CachedStore) locked(ctx context.Context, scope Scope, fn func() error) error {
	unlock, err := c.cache.Lock(ctx, lockKey(scope), lockTTL, lockRetry)
	if err != nil {
		return err
	}
	defer unlock()
	if err := fn(); err != nil {
		return err
	}
	key := hiddenKey(scope)
	ids, err := c.inner.Hidden(ctx, scope)
	if err == nil {
		err = c.cache.Put(ctx, key, ids, ttlHidden)
	}
	if err != nil {
		logger.Warnf("cache: write %s: %v", key, err)
		if err := c.cache.Del(ctx, key); err != nil {
			logger.Warnf("cache: del %s: %v", key, err)
		}
	}
	return nil
}
