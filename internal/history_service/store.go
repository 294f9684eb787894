package history_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"sync"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// DefaultMaxMessages is the per-session cap on stored turns.
const DefaultMaxMessages = 50

// session holds one session's turns behind its own lock, so mutations to
// unrelated sessions never serialize against each other.
type session struct {
	mu    sync.Mutex
	turns []Turn
}

// Store is the process-local cache of recent conversation turns. State lives
// only in memory and is lost on restart.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxMessages int
	log         logger.Logger
}

// Config holds configuration for the Store.
type Config struct {
	// MaxMessages caps the number of turns kept per session. Zero or
	// negative falls back to DefaultMaxMessages.
	MaxMessages int
	Logger      logger.Logger
}

// NewStore creates an empty Store.
func NewStore(cfg Config) *Store {
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}
	maxMessages := cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Store{
		sessions:    make(map[string]*session),
		maxMessages: maxMessages,
		log:         cfg.Logger,
	}
}

// getSession returns the session cell for a key, creating it when create is
// set. Returns nil for an unknown key otherwise.
func (s *Store) getSession(sessionID string, create bool) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[sessionID] = sess
	return sess
}

// AddMessage appends a turn to the session, creating the session lazily.
// When the cap is exceeded the oldest turns are evicted so that at most
// MaxMessages remain.
func (s *Store) AddMessage(sessionID string, turn Turn) {
	sess := s.getSession(sessionID, true)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.turns = append(sess.turns, turn)
	if overflow := len(sess.turns) - s.maxMessages; overflow > 0 {
		kept := make([]Turn, s.maxMessages)
		copy(kept, sess.turns[overflow:])
		sess.turns = kept

		s.log.Debug("Evicted oldest turns from session",
			logger.StringField("session_id", sessionID),
			logger.IntField("evicted", overflow))
	}
}

// GetHistory returns a copy of the session's turns. When limit is positive
// only the most recent limit turns are returned, preserving order. An unknown
// session yields an empty slice.
func (s *Store) GetHistory(sessionID string, limit int) []Turn {
	sess := s.getSession(sessionID, false)
	if sess == nil {
		return []Turn{}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := 0
	if limit > 0 && limit < len(sess.turns) {
		start = len(sess.turns) - limit
	}
	out := make([]Turn, len(sess.turns)-start)
	copy(out, sess.turns[start:])
	return out
}

// ClearHistory removes the session entirely. Clearing an absent session is a
// no-op.
func (s *Store) ClearHistory(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len returns the number of turns currently stored for a session.
func (s *Store) Len(sessionID string) int {
	sess := s.getSession(sessionID, false)
	if sess == nil {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.turns)
}
