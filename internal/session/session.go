// Package session keeps logged-in accounts in memory. A Session is an
// immutable value; handlers receive a copy and build everything they need
// (API client, store scope) from it.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/voyagen/popcornview/internal/models"
)

// ErrNoSession is returned when a session id is unknown or expired.
var ErrNoSession = errors.New("session: no active session")

// Session is one logged-in account.
type Session struct {
	ID        string
	Account   models.Account
	CreatedAt time.Time
}

// AccountKey scopes per-account storage.
func (s Session) AccountKey() string { return s.Account.Key() }

// Manager holds sessions in a TTL cache. Sessions are never persisted.
type Manager struct {
	sessions *gocache.Cache
	ttl      time.Duration

	mu    sync.Mutex
	onEnd []func(Session)
}

// NewManager returns a Manager whose sessions expire ttl after creation.
func NewManager(ttl time.Duration) *Manager {
	cleanup := ttl / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	m := &Manager{sessions: gocache.New(ttl, cleanup), ttl: ttl}
	m.sessions.OnEvicted(func(_ string, v any) {
		if s, ok := v.(Session); ok {
			m.ended(s)
		}
	})
	return m
}

// TTL is the lifetime of a new session.
func (m *Manager) TTL() time.Duration { return m.ttl }

// OnEnd registers fn to run when a session is deleted or expires.
func (m *Manager) OnEnd(fn func(Session)) {
	m.mu.Lock()
	m.onEnd = append(m.onEnd, fn)
	m.mu.Unlock()
}

// Create stores a new session for a.
func (m *Manager) Create(a models.Account) Session {
	s := Session{ID: uuid.NewString(), Account: a, CreatedAt: time.Now().UTC()}
	m.sessions.SetDefault(s.ID, s)
	return s
}

// Get returns the session with id or ErrNoSession.
func (m *Manager) Get(id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	v, ok := m.sessions.Get(id)
	if !ok {
		return Session{}, ErrNoSession
	}
	return v.(Session), nil
}

// Delete ends a session. Unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.sessions.Delete(id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

func (m *Manager) ended(s Session) {
	m.mu.Lock()
	hooks := append([]func(Session){}, m.onEnd...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(s)
	}
}
