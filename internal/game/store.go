package game

import (
	"sync"
	"time"
)

// DefaultMaxLog bounds the stored message log per session.
const DefaultMaxLog = 100

// Store is the interface for session persistence. Operations on an
// unknown session never error; a default session is synthesized
// transparently.
type Store interface {
	// Load returns a copy of the session, creating a default one if absent.
	Load(sessionID string) (*Session, error)

	// Append adds messages to the end of the session's log. Never
	// reorders, never deduplicates.
	Append(sessionID string, msgs ...Message) error

	// Save atomically replaces the stored session. This is the commit
	// point of a dispatcher step: nothing before it is visible.
	Save(sess *Session) error

	// Reset clears the secret answer and log, keeping the session
	// addressable. Idempotent.
	Reset(sessionID string) error

	// Expire removes sessions idle longer than olderThan and returns
	// how many were removed. Idempotent; intended to be driven by an
	// external scheduler, not a loop inside the core.
	Expire(olderThan time.Duration) (int, error)
}

// TrimLog bounds a log to max messages: every system message is
// retained, plus the most recent non-system messages that fit, in
// original relative order. If system messages alone meet or exceed max,
// only the first system message is kept plus the max-1 most recent
// non-system messages. Standing instructions are never silently dropped
// in the normal case.
func TrimLog(log []Message, max int) []Message {
	if max <= 0 || len(log) <= max {
		return log
	}

	systemCount := 0
	for _, m := range log {
		if m.Role == RoleSystem {
			systemCount++
		}
	}

	keep := make([]bool, len(log))

	if systemCount >= max {
		// Degenerate: keep the first system message only.
		for i, m := range log {
			if m.Role == RoleSystem {
				keep[i] = true
				break
			}
		}
		remaining := max - 1
		for i := len(log) - 1; i >= 0 && remaining > 0; i-- {
			if log[i].Role != RoleSystem {
				keep[i] = true
				remaining--
			}
		}
	} else {
		remaining := max - systemCount
		for i := len(log) - 1; i >= 0; i-- {
			if log[i].Role == RoleSystem {
				keep[i] = true
			} else if remaining > 0 {
				keep[i] = true
				remaining--
			}
		}
	}

	out := make([]Message, 0, max)
	for i, m := range log {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}

// MemStore is an in-memory session store. It is the minimum viable
// implementation: volatile across restarts, safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxLog   int
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an in-memory store. maxLog bounds each session's
// log; zero or negative uses DefaultMaxLog.
func NewMemStore(maxLog int) *MemStore {
	if maxLog <= 0 {
		maxLog = DefaultMaxLog
	}
	return &MemStore{
		sessions: make(map[string]*Session),
		maxLog:   maxLog,
	}
}

// getOrCreate returns the live session, creating a default one if
// absent. Callers must hold the write lock.
func (s *MemStore) getOrCreate(sessionID string) *Session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &Session{
			ID:           sessionID,
			Log:          []Message{},
			LastActivity: time.Now(),
		}
		s.sessions[sessionID] = sess
	}
	return sess
}

// Load returns a copy of the session, creating a default one if absent.
func (s *MemStore) Load(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(sessionID).Copy(), nil
}

// Append adds messages to the end of the session's log.
func (s *MemStore) Append(sessionID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(sessionID)
	sess.Log = append(sess.Log, msgs...)
	sess.Log = TrimLog(sess.Log, s.maxLog)
	sess.LastActivity = time.Now()
	return nil
}

// Save atomically replaces the stored session.
func (s *MemStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := sess.Copy()
	cp.Log = TrimLog(cp.Log, s.maxLog)
	s.sessions[sess.ID] = cp
	return nil
}

// Reset clears the secret answer and log, keeping the session addressable.
func (s *MemStore) Reset(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(sessionID)
	sess.SecretAnswer = nil
	sess.Log = []Message{}
	sess.LastActivity = time.Now()
	return nil
}

// Expire removes sessions idle longer than olderThan.
func (s *MemStore) Expire(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live sessions.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
