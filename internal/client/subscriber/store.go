package subscriber

import "sync"

// Store is a State shared between the reader goroutine and the UI.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Apply folds ev into the stored state.
func (s *Store) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Apply(s.state, ev)
}

// Replace swaps in a freshly fetched state.
func (s *Store) Replace(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Update runs fn on the current state under the write lock.
func (s *Store) Update(fn func(State) State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
