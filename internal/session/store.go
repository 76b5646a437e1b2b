// Package session keeps one conversation state per identity in memory and
// evicts conversations that have gone quiet.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/sweeper"
)

const DefaultTimeout = 30 * time.Minute

type Session struct {
	Identity       string
	State          State
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Expired reports whether the session has been inactive for longer than timeout.
func (s Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivityAt) > timeout
}

// Store is what the conversation engine needs from session storage.
type Store interface {
	// Get returns the identity's session, creating an idle one on first access.
	Get(identity string) Session
	// Update replaces the identity's state and stamps its activity time.
	Update(identity string, state State) Session
	// Reset replaces the identity's session with a fresh idle one.
	Reset(identity string)
}

type Option func(*MemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type MemoryStore struct {
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	sweeper *sweeper.Sweeper
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose sweep runs every timeout and drops
// sessions idle for longer than timeout. A non-positive timeout falls back to
// DefaultTimeout.
func NewMemoryStore(timeout time.Duration, opts ...Option) *MemoryStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &MemoryStore{
		timeout:  timeout,
		now:      time.Now,
		logger:   zap.NewNop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sweeper = sweeper.New(timeout, func(time.Time) {
		if n := s.Sweep(s.now()); n > 0 {
			s.logger.Debug("session sweep", zap.Int("evicted", n))
		}
	})
	return s
}

func (s *MemoryStore) Get(identity string) Session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		sess = newSession(identity, now)
		s.sessions[identity] = sess
	}
	sess.LastActivityAt = now
	return *sess
}

func (s *MemoryStore) Update(identity string, state State) Session {
	if state == nil {
		state = Idle{}
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		sess = newSession(identity, now)
		s.sessions[identity] = sess
	}
	sess.State = state
	sess.LastActivityAt = now
	return *sess
}

func (s *MemoryStore) Reset(identity string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[identity] = newSession(identity, now)
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the timeout as of now and
// returns how many were removed. The whole pass runs under the store lock, so
// a session touched concurrently is either seen with its new activity time or
// touched after removal and recreated.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for identity, sess := range s.sessions {
		if sess.Expired(now, s.timeout) {
			delete(s.sessions, identity)
			evicted++
		}
	}
	return evicted
}

// Start launches the periodic expiry sweep.
func (s *MemoryStore) Start() {
	s.sweeper.Start()
}

// Close stops the sweep and drops every session. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.sweeper.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*Session)
}

func newSession(identity string, now time.Time) *Session {
	return &Session{
		Identity:       identity,
		State:          Idle{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}
