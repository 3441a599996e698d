package playback

import (
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/robfig/cron/v3"

	"github.com/voyagen/popcornview/internal/logger"
)

// DefaultReapSchedule runs the reaper once a minute.
const DefaultReapSchedule = "@every 1m"

// Registry tracks open adapters so they can be listed, closed by id or
// session, and reaped when abandoned.
type Registry struct {
	adapters *xsync.MapOf[string, *Adapter]
	idleTTL  time.Duration
	cron     *cron.Cron
}

// NewRegistry returns a Registry that reaps adapters idle for idleTTL.
func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		adapters: xsync.NewMapOf[string, *Adapter](),
		idleTTL:  idleTTL,
	}
}

// Add registers a.
func (r *Registry) Add(a *Adapter) {
	r.adapters.Store(a.ID, a)
}

// Get returns the adapter with id.
func (r *Registry) Get(id string) (*Adapter, bool) {
	return r.adapters.Load(id)
}

// Remove closes and forgets the adapter with id. It reports whether it was
// registered.
func (r *Registry) Remove(id string) bool {
	a, ok := r.adapters.LoadAndDelete(id)
	if ok {
		a.Close()
	}
	return ok
}

// Len is the number of registered adapters.
func (r *Registry) Len() int {
	return r.adapters.Size()
}

// ForSession returns the adapters of a session.
func (r *Registry) ForSession(sessionID string) []*Adapter {
	var out []*Adapter
	r.adapters.Range(func(_ string, a *Adapter) bool {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
		return true
	})
	return out
}

// CloseSession closes every adapter of a session.
func (r *Registry) CloseSession(sessionID string) int {
	n := 0
	for _, a := range r.ForSession(sessionID) {
		if r.Remove(a.ID) {
			n++
		}
	}
	return n
}

// Reap closes adapters that failed, finished, or have not relayed data for
// the idle TTL. Adapters inside a Stream call are only reaped when idle.
func (r *Registry) Reap(now time.Time) int {
	var victims []string
	r.adapters.Range(func(id string, a *Adapter) bool {
		idle := r.idleTTL > 0 && now.Sub(a.LastActive()) > r.idleTTL
		done := !a.Streaming() && (a.State() == StateError || a.Finished())
		if idle || done {
			victims = append(victims, id)
		}
		return true
	})
	n := 0
	for _, id := range victims {
		if r.Remove(id) {
			n++
		}
	}
	if n > 0 {
		logger.Debugf("playback: reaped %d adapters", n)
	}
	return n
}

// StartReaper runs Reap on schedule (cron syntax, "" for the default).
func (r *Registry) StartReaper(schedule string) error {
	if schedule == "" {
		schedule = DefaultReapSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.Reap(time.Now()) }); err != nil {
		return fmt.Errorf("reaper schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	return nil
}

// Shutdown stops the reaper and closes every adapter.
func (r *Registry) Shutdown() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.adapters.Range(func(id string, _ *Adapter) bool {
		r.Remove(id)
		return true
	})
}
