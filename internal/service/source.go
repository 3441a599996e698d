package service

import (
	"context"
	"time"

	"github.com/voyagen/popcornview/internal/cache"
	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
)

// Source lists categories and items of one upstream account.
// *xtream.Client implements it.
type Source interface {
	Categories(ctx context.Context, kind models.MediaKind) ([]models.Category, error)
	Items(ctx context.Context, kind models.MediaKind, categoryID models.ID) ([]models.Item, error)
}

// PayloadCache is a shared cache of upstream payloads. *cache.Redis
// implements it.
type PayloadCache interface {
	Fetch(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, v any, ttl time.Duration) error
}

// DefaultSourceTTL bounds how long a cached upstream listing is served.
const DefaultSourceTTL = 5 * time.Minute

// CachedSource serves listings from a PayloadCache and falls through to the
// upstream on a miss. Failed upstream calls are not cached.
type CachedSource struct {
	inner      Source
	cache      PayloadCache
	accountKey string
	ttl        time.Duration
}

// NewCachedSource wraps inner. accountKey partitions the cache per upstream
// account.
func NewCachedSource(inner Source, c PayloadCache, accountKey string, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultSourceTTL
	}
	return &CachedSource{inner: inner, cache: c, accountKey: accountKey, ttl: ttl}
}

func (s *CachedSource) Categories(ctx context.Context, kind models.MediaKind) ([]models.Category, error) {
	key := cache.Key("categories", s.accountKey, string(kind))
	var out []models.Category
	if s.lookup(ctx, key, &out) {
		return out, nil
	}
	out, err := s.inner.Categories(ctx, kind)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *CachedSource) Items(ctx context.Context, kind models.MediaKind, categoryID models.ID) ([]models.Item, error) {
	cat := categoryID.String()
	if cat == "" {
		cat = "all"
	}
	key := cache.Key("items", s.accountKey, string(kind), cat)
	var out []models.Item
	if s.lookup(ctx, key, &out) {
		return out, nil
	}
	out, err := s.inner.Items(ctx, kind, categoryID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *CachedSource) lookup(ctx context.Context, key string, dst any) bool {
	found, err := s.cache.Fetch(ctx, key, dst)
	if err != nil {
		logger.Warnf("cache: get %s: %v", key, err)
		return false
	}
	return found
}

func (s *CachedSource) store(ctx context.Context, key string, v any) {
	if err := s.cache.Put(ctx, key, v, s.ttl); err != nil {
		logger.Warnf("cache: set %s: %v", key, err)
	}
}
