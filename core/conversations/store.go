// Package conversations keeps the dialog sessions of all live
// conversations in memory, keyed by a session identifier.
package conversations

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-cookbook/core/dialog"
)

// Store isolates sessions from each other and serializes the turns of a
// single session. Sessions live only as long as the process.
type Store struct {
	sessions map[string]*entry
	now      func() time.Time

	mu sync.Mutex
}

type entry struct {
	session  dialog.Session
	lastUsed time.Time

	mu sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: map[string]*entry{},
		now:      time.Now,
	}
}

// Get returns a copy of the session stored under id.
func (s *Store) Get(id string) (dialog.Session, bool) {
	e, ok := s.lookup(id, false)
	if !ok {
		return dialog.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	session, err := e.session.Clone()
	if err != nil {
		return dialog.Session{}, false
	}
	return session, true
}

// Put replaces the session stored under id.
func (s *Store) Put(id string, session dialog.Session) {
	e, _ := s.lookup(id, true)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = session
}

// Update runs fn with the current session of id, creating a fresh one when
// there is none, and stores what fn returns unless fn fails. Calls for the
// same id never overlap, calls for different ids do not wait on each other.
func (s *Store) Update(id string, fn func(dialog.Session) (dialog.Session, error)) error {
	e, _ := s.lookup(id, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.session)
	if err != nil {
		return err
	}
	e.session = next
	return nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune drops sessions that were not used for longer than idle and returns
// how many were dropped.
func (s *Store) Prune(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	pruned := 0
	for id, e := range s.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

func (s *Store) lookup(id string, create bool) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		if !create {
			return nil, false
		}
		e = &entry{session: dialog.NewSession()}
		s.sessions[id] = e
	}
	e.lastUsed = s.now()
	return e, ok
}
