package service

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/session"
	"github.com/voyagen/popcornview/internal/store"
)

// SourceFactory builds the upstream Source for a session.
type SourceFactory func(session.Session) Source

// Listers keeps one Lister per session and kind. Idle listers expire after
// ttl.
type Listers struct {
	mu        sync.Mutex
	listers   *gocache.Cache
	hidden    store.Visibility
	newSource SourceFactory
}

// NewListers returns an empty registry.
func NewListers(hidden store.Visibility, newSource SourceFactory, ttl time.Duration) *Listers {
	return &Listers{
		listers:   gocache.New(ttl, ttl),
		hidden:    hidden,
		newSource: newSource,
	}
}

// For returns the Lister of s for kind, creating it on first use.
func (r *Listers) For(s session.Session, kind models.MediaKind) *Lister {
	key := s.ID + "|" + string(kind)
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.listers.Get(key); ok {
		r.listers.SetDefault(key, v)
		return v.(*Lister)
	}
	l := NewLister(s, kind, r.newSource(s), r.hidden)
	r.listers.SetDefault(key, l)
	return l
}

// Drop forgets every Lister of a session.
func (r *Listers) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range models.Kinds {
		r.listers.Delete(sessionID + "|" + string(k))
	}
}
