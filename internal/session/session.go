package session

import (
	"sync"
	"time"

	"netdash/internal/dataset"
	"netdash/internal/filter"
)

// Session is the state of one browser. It is safe for concurrent use;
// tables are immutable once stored.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	tables    map[dataset.Kind]*dataset.Table
	selection filter.Selection
	lastSeen  time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		tables:    make(map[dataset.Kind]*dataset.Table),
		selection: filter.AllSelection(),
		lastSeen:  now,
	}
}

// Put stores t in the slot of its kind and returns the table it replaced
func (s *Session) Put(t *dataset.Table) *dataset.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.tables[t.Kind]
	s.tables[t.Kind] = t
	return prev
}

// Table returns the table loaded for kind
func (s *Session) Table(kind dataset.Kind) (*dataset.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[kind]
	return t, ok
}

// Tables returns a snapshot of the loaded tables
func (s *Session) Tables() map[dataset.Kind]*dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[dataset.Kind]*dataset.Table, len(s.tables))
	for k, t := range s.tables {
		out[k] = t
	}
	return out
}

// Remove empties the slot of kind and reports whether it was loaded
func (s *Session) Remove(kind dataset.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[kind]
	delete(s.tables, kind)
	return ok
}

// Clear empties every slot and resets the selection. It returns the number
// of tables dropped.
func (s *Session) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tables)
	s.tables = make(map[dataset.Kind]*dataset.Table)
	s.selection = filter.AllSelection()
	return n
}

// Selection returns the current filter selection
func (s *Session) Selection() filter.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// SetSelection replaces the filter selection
func (s *Session) SetSelection(sel filter.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// Touch marks the session as used at now
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
}

// LastSeen is the time of the latest Touch
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
