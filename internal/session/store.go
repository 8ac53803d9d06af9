package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"netdash/internal/config"
)

// Stats describes the store for the health endpoint
type Stats struct {
	Sessions    int     `json:"sessions"`
	MaxSessions int     `json:"max_sessions"`
	Created     int64   `json:"created"`
	Expired     int64   `json:"expired"`
	Evicted     int64   `json:"evicted"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	TTLSeconds  float64 `json:"ttl_seconds"`
}

// Store keeps sessions in memory. Idle sessions expire after the TTL and,
// when the store is full, the least recently seen session is evicted.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	ttl         time.Duration
	maxSessions int
	interval    time.Duration
	logger      *slog.Logger
	now         func() time.Time
	onChange    func(delta int64)

	created, expired, evicted int64
	hits, misses              int64
}

// NewStore creates a store from the session configuration
func NewStore(cfg config.SessionConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:    make(map[string]*Session),
		ttl:         cfg.IdleTTL,
		maxSessions: cfg.MaxSessions,
		interval:    cfg.JanitorInterval,
		logger:      logger.With(slog.String("component", "session_store")),
		now:         time.Now,
	}
}

// OnChange registers fn to be called with +1 and -1 as sessions come and go
func (s *Store) OnChange(fn func(delta int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) changed(delta int64) {
	if s.onChange != nil && delta != 0 {
		s.onChange(delta)
	}
}

// Create starts a new empty session
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictLeastRecent()
	}
	sess := newSession(uuid.NewString(), now)
	s.sessions[sess.ID] = sess
	s.created++
	s.changed(1)
	return sess
}

// Get returns the live session with id and marks it as seen. Expired
// sessions are dropped and reported absent.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		s.misses++
		return nil, false
	}
	now := s.now()
	if s.expiredAt(sess, now) {
		delete(s.sessions, id)
		s.expired++
		s.misses++
		s.changed(-1)
		return nil, false
	}
	sess.Touch(now)
	s.hits++
	return sess, true
}

// Delete drops the session with id
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	s.changed(-1)
	return true
}

// Len is the number of sessions held, expired or not
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops every session idle at now and returns how many were dropped
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if s.expiredAt(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	s.expired += int64(n)
	s.changed(-int64(n))
	return n
}

// Run sweeps expired sessions every janitor interval until ctx is done
func (s *Store) Run(ctx context.Context) error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info("expired sessions removed",
					slog.Int("removed", n),
					slog.Int("remaining", s.Len()))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Stats returns counters of the store
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Sessions:    len(s.sessions),
		MaxSessions: s.maxSessions,
		Created:     s.created,
		Expired:     s.expired,
		Evicted:     s.evicted,
		Hits:        s.hits,
		Misses:      s.misses,
		TTLSeconds:  s.ttl.Seconds(),
	}
}

func (s *Store) expiredAt(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.LastSeen()) > s.ttl
}

func (s *Store) evictLeastRecent() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		seen := sess.LastSeen()
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if oldestID == "" {
		return
	}
	delete(s.sessions, oldestID)
	s.evicted++
	s.changed(-1)
	s.logger.Warn("session store full, evicted least recent session",
		slog.String("session_id", oldestID),
		slog.Int("max_sessions", s.maxSessions))
}
