package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/popcornview/internal/models"
)

var liveScope = Scope{AccountKey: "http://panel.tv|alice", Kind: models.KindLive}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	mem, err := NewMemory()
	require.NoError(t, err)
	lite, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "hidden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Backend{"memory": mem, "sqlite": lite}
}

func TestVisibilityRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			defer s.Close()

			hidden, err := s.Hidden(ctx, liveScope)
			require.NoError(t, err)
			assert.NotNil(t, hidden)
			assert.Empty(t, hidden)

			require.NoError(t, s.Hide(ctx, liveScope, "7"))
			visible, err := s.IsVisible(ctx, liveScope, "7")
			require.NoError(t, err)
			assert.False(t, visible)

			// Hiding twice keeps a single entry.
			require.NoError(t, s.Hide(ctx, liveScope, "7"))
			hidden, err = s.Hidden(ctx, liveScope)
			require.NoError(t, err)
			assert.Equal(t, []models.ID{"7"}, hidden)

			require.NoError(t, s.Show(ctx, liveScope, "7"))
			visible, err = s.IsVisible(ctx, liveScope, "7")
			require.NoError(t, err)
			assert.True(t, visible)

			// Showing a visible id is a no-op.
			require.NoError(t, s.Show(ctx, liveScope, "8"))
			hidden, err = s.Hidden(ctx, liveScope)
			require.NoError(t, err)
			assert.Empty(t, hidden)
		})
	}
}

func TestScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New(backends(t)["memory"])

	movies := Scope{AccountKey: liveScope.AccountKey, Kind: models.KindMovie}
	other := Scope{AccountKey: "http://panel.tv|bob", Kind: models.KindLive}

	require.NoError(t, s.Hide(ctx, liveScope, "1"))

	for _, sc := range []Scope{movies, other} {
		visible, err := s.IsVisible(ctx, sc, "1")
		require.NoError(t, err)
		assert.True(t, visible, sc.Key())
	}
}

func TestIDsAreNormalized(t *testing.T) {
	ctx := context.Background()
	s := New(backends(t)["memory"])

	require.NoError(t, s.Hide(ctx, liveScope, " 007 "))
	visible, err := s.IsVisible(ctx, liveScope, "7")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestCorruptListDefaultsToEmpty(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Update(ctx, liveScope.Key(), func([]byte) ([]byte, error) {
				return []byte("{not a list"), nil
			}))
			s := New(b)

			hidden, err := s.Hidden(ctx, liveScope)
			require.NoError(t, err)
			assert.Empty(t, hidden)

			require.NoError(t, s.Hide(ctx, liveScope, "3"))
			hidden, err = s.Hidden(ctx, liveScope)
			require.NoError(t, err)
			assert.Equal(t, []models.ID{"3"}, hidden)
		})
	}
}

func TestStoredNumbersDecode(t *testing.T) {
	ctx := context.Background()
	b := backends(t)["memory"]
	require.NoError(t, b.Update(ctx, liveScope.Key(), func([]byte) ([]byte, error) {
		return []byte(`[7,"7","12"]`), nil
	}))
	hidden, err := New(b).Hidden(ctx, liveScope)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"7", "12"}, hidden)
}

func TestConcurrentHides(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			ids := []models.ID{"1", "2", "3", "4", "5", "6", "7", "8"}
			var wg sync.WaitGroup
			for _, id := range ids {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.Hide(ctx, liveScope, id))
				}()
			}
			wg.Wait()
			hidden, err := s.Hidden(ctx, liveScope)
			require.NoError(t, err)
			assert.ElementsMatch(t, ids, hidden)
		})
	}
}

func TestInvalidScope(t *testing.T) {
	s := New(backends(t)["memory"])
	_, err := s.Hidden(context.Background(), Scope{Kind: models.KindLive})
	assert.Error(t, err)
	assert.Error(t, s.Hide(context.Background(), Scope{AccountKey: "k", Kind: "radio"}, "1"))
	assert.Error(t, s.Hide(context.Background(), liveScope, " "))
}

func TestFilter(t *testing.T) {
	cats := []models.Category{{ID: "1", Name: "News"}, {ID: "2", Name: "Sport"}, {ID: "3", Name: "Kids"}}

	got := Filter(cats, []models.ID{"2"})
	assert.Equal(t, []models.Category{cats[0], cats[2]}, got)

	assert.Equal(t, cats, Filter(cats, nil))
	assert.Empty(t, Filter(cats, []models.ID{"1", "2", "3"}))

	items := []models.Item{{ID: "10", CategoryID: "1"}, {ID: "11", CategoryID: "2"}}
	assert.Equal(t, items[:1], FilterItems(items, []models.ID{"2"}))

	ann := Annotate(cats, []models.ID{"3"})
	require.Len(t, ann, 3)
	assert.True(t, ann[0].Visible)
	assert.False(t, ann[2].Visible)
}
