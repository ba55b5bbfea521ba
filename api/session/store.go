package session

import (
	"context"
	"sync"
	"time"

	"fieldrisk/api/logging"

	"github.com/google/uuid"
)

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 2 * time.Hour

// Store keeps live sessions and evicts idle ones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Context
	wiring   Wiring
	ttl      time.Duration
	now      func() time.Time
	log      logging.Logger
	onCount  func(int)
}

type StoreOption func(*Store)

// WithTTL sets the idle timeout. Non-positive values keep the default.
func WithTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithCountHook is called with the live session count after every change.
func WithCountHook(fn func(int)) StoreOption {
	return func(s *Store) { s.onCount = fn }
}

// NewStore returns an empty store. w.Clock also drives eviction.
func NewStore(w Wiring, opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Context),
		wiring:   w,
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      logging.Noop(),
	}
	if w.Clock != nil {
		s.now = w.Clock
	}
	if w.Logger != nil {
		s.log = w.Logger
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create builds and registers a new session.
func (s *Store) Create() *Context {
	c := NewContext(uuid.NewString(), s.wiring)
	s.mu.Lock()
	s.sessions[c.ID] = c
	n := len(s.sessions)
	s.mu.Unlock()

	s.count(n)
	return c
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Context, bool) {
	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		c.touch(s.now())
	}
	return c, ok
}

// Delete drops a session. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	c, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		c.close()
		s.count(n)
	}
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// went. Sessions with a run in flight are kept.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var evicted []*Context
	for id, c := range s.sessions {
		if c.idleSince().Before(cutoff) && !c.Orchestrator.Busy() {
			evicted = append(evicted, c)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, c := range evicted {
		c.close()
	}
	if len(evicted) > 0 {
		s.count(n)
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Info(ctx, "evicted idle sessions", logging.Int("count", n), logging.Int("live", s.Len()))
			}
		}
	}
}

func (s *Store) count(n int) {
	if s.onCount != nil {
		s.onCount(n)
	}
}
