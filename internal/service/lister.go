package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/session"
	"github.com/voyagen/popcornview/internal/store"
	"github.com/voyagen/popcornview/internal/xtream"
)

// ListingTTL is how long a loaded listing is reused before Ensure reloads it.
const ListingTTL = 5 * time.Minute

// Listing is the content of one listing screen.
type Listing struct {
	Kind       models.MediaKind  `json:"kind"`
	CategoryID models.ID         `json:"category_id,omitempty"`
	Categories []models.Category `json:"categories"`
	Items      []models.Item     `json:"items"`
	// Available is false when the upstream could not be reached for either
	// categories or items; the affected lists are then empty.
	Available bool      `json:"available"`
	LoadedAt  time.Time `json:"loaded_at"`

	generation uint64
	allCats    []models.Category
	allItems   []models.Item
}

// Lister backs one listing screen (live, movies or series) of one session.
// Concurrent loads are allowed; only the most recently started load that
// completes may replace the current listing.
type Lister struct {
	session session.Session
	kind    models.MediaKind
	source  Source
	hidden  store.Visibility

	mu        sync.Mutex
	started   uint64
	committed uint64
	current   *Listing

	searches *gocache.Cache
}

// NewLister returns a Lister for kind. The session is captured by value.
func NewLister(s session.Session, kind models.MediaKind, src Source, hidden store.Visibility) *Lister {
	return &Lister{
		session:  s,
		kind:     kind,
		source:   src,
		hidden:   hidden,
		searches: gocache.New(ListingTTL, 2*ListingTTL),
	}
}

// Kind returns the media kind of the screen.
func (l *Lister) Kind() models.MediaKind { return l.kind }

// Scope is the hidden-category scope of the screen.
func (l *Lister) Scope() store.Scope {
	return store.Scope{AccountKey: l.session.AccountKey(), Kind: l.kind}
}

// Load fetches categories, items of categoryID (all when empty) and the
// hidden set concurrently. Upstream failures leave the affected list empty
// and mark the listing unavailable. A load that is cancelled, or that
// finishes after a newer load has been committed, returns its result
// without replacing the current listing.
func (l *Lister) Load(ctx context.Context, categoryID models.ID) (Listing, error) {
	l.mu.Lock()
	l.started++
	gen := l.started
	l.mu.Unlock()

	categoryID = models.NormalizeID(categoryID.String())

	var (
		cats     []models.Category
		items    []models.Item
		hidden   []models.ID
		catsErr  error
		itemsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, catsErr = l.source.Categories(gctx, l.kind)
		return nil
	})
	g.Go(func() error {
		items, itemsErr = l.source.Items(gctx, l.kind, categoryID)
		return nil
	})
	g.Go(func() error {
		var err error
		hidden, err = l.hidden.Hidden(gctx, l.Scope())
		return err
	})
	if err := g.Wait(); err != nil {
		return Listing{}, err
	}
	for _, err := range []error{catsErr, itemsErr} {
		if err != nil && !errors.Is(err, xtream.ErrUnavailable) {
			return Listing{}, err
		}
	}

	if cats == nil {
		cats = []models.Category{}
	}
	if items == nil {
		items = []models.Item{}
	}
	listing := Listing{
		Kind:       l.kind,
		CategoryID: categoryID,
		Available:  catsErr == nil && itemsErr == nil,
		LoadedAt:   time.Now().UTC(),
		generation: gen,
		allCats:    cats,
		allItems:   items,
	}
	listing.applyHidden(hidden)

	if ctx.Err() != nil {
		return listing, ctx.Err()
	}
	l.commit(listing)
	return listing, nil
}

func (l *Lister) commit(listing Listing) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if listing.generation <= l.committed {
		logger.Debugf("listing %s: dropping stale load %d (current %d)", l.kind, listing.generation, l.committed)
		return
	}
	l.committed = listing.generation
	l.current = &listing
	l.searches.Flush()
}

// Current returns the committed listing, if any.
func (l *Lister) Current() (Listing, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return Listing{}, false
	}
	return *l.current, true
}

// applyHidden filters the raw upstream lists by hidden. Items are only
// filtered in the unselected view; an explicit category selection shows
// everything in it.
func (ls *Listing) applyHidden(hidden []models.ID) {
	ls.Categories = store.Filter(ls.allCats, hidden)
	ls.Items = ls.allItems
	if ls.CategoryID == "" {
		ls.Items = store.FilterItems(ls.allItems, hidden)
	}
}

// Ensure returns the current listing when it is for categoryID and younger
// than ListingTTL, otherwise it loads a new one. A reused listing is
// filtered again by the current hidden set.
func (l *Lister) Ensure(ctx context.Context, categoryID models.ID) (Listing, error) {
	categoryID = models.NormalizeID(categoryID.String())
	cur, ok := l.Current()
	if !ok || !cur.Available || cur.CategoryID != categoryID || time.Since(cur.LoadedAt) >= ListingTTL {
		return l.Load(ctx, categoryID)
	}
	hidden, err := l.hidden.Hidden(ctx, l.Scope())
	if err != nil {
		return Listing{}, err
	}
	cur.applyHidden(hidden)

	l.mu.Lock()
	if l.current != nil && l.current.generation == cur.generation {
		l.current = &cur
		l.searches.Flush()
	}
	l.mu.Unlock()
	return cur, nil
}

// Search filters the current items by a case-insensitive substring of the
// name. An empty query returns the full list.
func (l *Lister) Search(query string) []models.Item {
	cur, ok := l.Current()
	if !ok {
		return []models.Item{}
	}
	return l.SearchIn(cur, query)
}

// SearchIn filters the items of listing, which may have been superseded by
// a newer load. Results are cached only while listing is the current one.
func (l *Lister) SearchIn(listing Listing, query string) []models.Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return listing.Items
	}
	cur, ok := l.Current()
	cacheable := ok && cur.generation == listing.generation
	key := strconv.FormatUint(listing.generation, 10) + ":" + q
	if cacheable {
		if v, ok := l.searches.Get(key); ok {
			return v.([]models.Item)
		}
	}
	out := make([]models.Item, 0)
	for _, it := range listing.Items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	if cacheable {
		l.searches.SetDefault(key, out)
	}
	return out
}
