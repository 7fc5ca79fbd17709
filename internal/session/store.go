// Package session provides the in-memory session registry: one mutable
// conversation session per sender address, created lazily on first contact
// and evicted after an idle TTL so the map cannot grow without bound.
package session

import (
	"sync"
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	session *domain.Session

	// lastSeen is guarded by Store.mu, not entry.mu, so the sweeper can
	// read it without taking per-entry locks held across whole turns.
	lastSeen time.Time
}

// Store maps sender addresses to sessions. Each session is guarded by its
// own lock, so turns for the same user serialize while unrelated users
// proceed in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a session store. Sessions idle longer than ttl are swept by a
// background goroutine.
func New(ttl time.Duration) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
	go s.sweep()
	return s
}

// Do runs fn with exclusive access to the user's session, creating the
// default session on first contact. The session is mutated in place; the
// per-entry lock is held for the whole turn, which is what guarantees that
// a double-send from the same user observes the first turn's mutations.
func (s *Store) Do(userID string, fn func(sess *domain.Session)) {
	e := s.acquire(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.LastSeen = s.now()
	fn(e.session)
}

// Len returns the number of live sessions (exported for the metrics gauge).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) acquire(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		e = &entry{session: domain.NewSession(s.now())}
		s.entries[userID] = e
	}
	e.lastSeen = s.now()
	return e
}

// sweep periodically evicts sessions idle past the TTL.
func (s *Store) sweep() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := s.now().Add(-s.ttl)
		s.mu.Lock()
		for id, e := range s.entries {
			if e.lastSeen.Before(cutoff) {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
}
