// Package store is the single source of truth for session state.
//
// Sessions live in a table of independently locked cells: mutations to one
// session are strictly serialized while sessions never block each other.
// Everything handed back to callers is a redacted Snapshot copy.
package store

import (
	"sync"

	"github.com/wmtorode/poker-planning/internal/domain"
	"github.com/wmtorode/poker-planning/internal/metrics"
)

type cell struct {
	mu      sync.Mutex
	session *domain.Session
}

// Store maps session ids to their state. The table mutex guards only the map;
// each cell carries its own lock for the state transition itself.
type Store struct {
	mu    sync.RWMutex
	cells map[string]*cell
}

func New() *Store {
	return &Store{cells: make(map[string]*cell)}
}

func (s *Store) lookup(id string) *cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cells[id]
}

// Create initializes an empty session at revision zero. It is idempotent:
// creating an existing session returns its current snapshot unchanged.
func (s *Store) Create(id string) domain.Snapshot {
	s.mu.Lock()
	c, ok := s.cells[id]
	if !ok {
		c = &cell{session: domain.NewSession(id)}
		s.cells[id] = c
		metrics.SessionsActive.Set(float64(len(s.cells)))
	}
	s.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

// Get returns the current snapshot of a session.
func (s *Store) Get(id string) (domain.Snapshot, error) {
	c := s.lookup(id)
	if c == nil {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot(), nil
}

// Mutate applies fn to the session under its cell lock. Application is
// all-or-nothing: if fn returns an error the session is left untouched and
// the revision does not move. On success the revision is bumped exactly once
// and the snapshot of the committed state is returned.
//
// fn must not retain the *Session beyond the call and must not block; the
// cell lock is held for the duration.
func (s *Store) Mutate(id string, fn func(*domain.Session) error) (domain.Snapshot, error) {
	c := s.lookup(id)
	if c == nil {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(c.session); err != nil {
		return domain.Snapshot{}, err
	}
	c.session.Revision++
	return c.session.Snapshot(), nil
}

// Len reports the number of registered sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}
