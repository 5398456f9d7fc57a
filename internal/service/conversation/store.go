// Package conversation drives practice sessions: an in-memory session
// store plus the simulation engine over scenarios, the collaborator,
// and the durable record repository.
package conversation

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
)

// Session is the live state of one practice run. Access is serialized
// through the session's own mutex, so two requests against the same
// session never interleave while different sessions proceed in
// parallel.
type Session struct {
	mu sync.Mutex

	ID         string
	Scenario   *models.Scenario
	Transcript []models.Turn
	Scores     []models.ScoreBreakdown
	StartedAt  time.Time

	lastAccess atomic.Int64 // unix nanos
}

// Lock acquires the session for one request.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Store holds active sessions in process memory. Sessions idle past
// the TTL are evicted by a janitor goroutine; an evicted session is
// indistinguishable from one that never existed.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	done     chan struct{}
	closeOne sync.Once
}

// NewStore creates a session store and starts its eviction janitor.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Create registers a new session for the scenario and returns it.
func (s *Store) Create(scenario *models.Scenario) *Session {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Scenario:  scenario,
		StartedAt: now,
	}
	session.lastAccess.Store(now.UnixNano())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get returns an active session and refreshes its idle clock.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s not found or expired: %w", id, domain.ErrNotFound)
	}

	session.lastAccess.Store(time.Now().UnixNano())

	return session, nil
}

// Remove drops a session; no-op if already gone.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Active reports whether the session is still the one registered under
// its ID. Callers holding a session pointer across its own lock
// acquisition re-check membership with this, so a session removed or
// evicted in the gap is not mutated as if it were live.
func (s *Store) Active(session *Session) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[session.ID] == session
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the janitor. Sessions still in the store are abandoned.
func (s *Store) Close() {
	s.closeOne.Do(func() {
		close(s.done)
	})
}

func (s *Store) janitor() {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Store) evictIdle() {
	cutoff := time.Now().Add(-s.ttl).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.lastAccess.Load() < cutoff {
			delete(s.sessions, id)
			s.logger.Info("evicted idle session", "session_id", id, "scenario_id", session.Scenario.ID)
		}
	}
}
