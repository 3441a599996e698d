package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/popcornview/internal/models"
)

// memCache is an in-process listCache. Values are stored encoded so callers
// never share slices with it.
type memCache struct {
	mu     sync.Mutex
	lock   sync.Mutex
	data   map[string][]byte
	puts   int
	putErr error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Fetch(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) Put(_ context.Context, key string, v any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.puts++
	return nil
}

func (m *memCache) PutIfAbsent(_ context.Context, key string, v any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	m.data[key] = raw
	return true, nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) Lock(context.Context, string, time.Duration, time.Duration) (func(), error) {
	m.lock.Lock()
	return m.lock.Unlock, nil
}

// pausedInner runs afterRead once, between the inner read of Hidden and
// the return to the caller.
type pausedInner struct {
	Visibility
	afterRead func()
}

func (p *pausedInner) Hidden(ctx context.Context, scope Scope) ([]models.ID, error) {
	ids, err := p.Visibility.Hidden(ctx, scope)
	if hook := p.afterRead; hook != nil {
		p.afterRead = nil
		hook()
	}
	return ids, err
}

func newCachedStore(t *testing.T) (*CachedStore, *pausedInner, *memCache) {
	t.Helper()
	mem, err := NewMemory()
	require.NoError(t, err)
	inner := &pausedInner{Visibility: New(mem)}
	mc := newMemCache()
	return &CachedStore{inner: inner, cache: mc}, inner, mc
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	cs, _, mc := newCachedStore(t)

	got, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	assert.Empty(t, got)

	var cached []models.ID
	found, err := mc.Fetch(ctx, hiddenKey(liveScope), &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, cached)
}

func TestCachedStoreWritesThroughOnMutation(t *testing.T) {
	ctx := context.Background()
	cs, _, mc := newCachedStore(t)

	_, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	require.NoError(t, cs.Hide(ctx, liveScope, "7"))
	assert.Equal(t, 1, mc.puts)

	got, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"7"}, got)

	require.NoError(t, cs.Show(ctx, liveScope, "7"))
	visible, err := cs.IsVisible(ctx, liveScope, "7")
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestCachedStoreStaleFillDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	cs, inner, _ := newCachedStore(t)

	// The reader misses and reads the empty list; the hide lands before the
	// reader fills the cache.
	inner.afterRead = func() {
		require.NoError(t, cs.Hide(ctx, liveScope, "1"))
	}
	stale, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	assert.Empty(t, stale)

	got, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"1"}, got)
}

func TestCachedStoreDropsKeyWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	cs, _, mc := newCachedStore(t)

	_, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	mc.putErr = assert.AnError
	require.NoError(t, cs.Hide(ctx, liveScope, "3"))

	mc.putErr = nil
	got, err := cs.Hidden(ctx, liveScope)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"3"}, got)
}
