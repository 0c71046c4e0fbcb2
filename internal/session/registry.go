package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 24 * time.Hour

// DefaultSweepInterval is used by Run when no interval is given
const DefaultSweepInterval = 10 * time.Minute

// Registry maps session ids to controllers and expires idle sessions
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Controller
	ttl      time.Duration
	create   func() *Controller
	now      func() time.Time
}

// NewRegistry creates a registry. create builds a fresh controller for new sessions.
func NewRegistry(ttl time.Duration, create func() *Controller) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		sessions: make(map[string]*Controller),
		ttl:      ttl,
		create:   create,
		now:      time.Now,
	}
}

// Get returns the session for id, creating one with a fresh id when id is
// empty, malformed or unknown. created reports whether a new session was made.
func (r *Registry) Get(id string) (ctrl *Controller, sessionID string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := uuid.Parse(id); err == nil {
		if c, ok := r.sessions[id]; ok {
			return c, id, false
		}
	}

	sessionID = uuid.NewString()
	ctrl = r.create()
	r.sessions[sessionID] = ctrl
	log.Debug().Str("session", sessionID).Msg("Created session")
	return ctrl, sessionID, true
}

// Lookup returns an existing session without creating one
func (r *Registry) Lookup(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	return c, ok
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many were removed
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, c := range r.sessions {
		if c.LastActive().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(r.sessions)).Msg("Expired idle sessions")
	}
	return removed
}

// Run sweeps on every tick until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
