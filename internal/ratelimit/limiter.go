// Package ratelimit admits or rejects messages per identity using a sliding
// window of recent attempts held in memory.
package ratelimit

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivanoskov/ledger_bot/internal/sweeper"
)

var (
	ErrInvalidMaxAttempts = errors.New("ratelimit: max attempts must be at least 1")
	ErrInvalidWindow      = errors.New("ratelimit: window must be positive")
)

type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepInterval overrides the default cleanup interval of twice the window.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) { l.sweepInterval = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

type Limiter struct {
	maxAttempts   int
	window        time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *zap.Logger

	mu       sync.Mutex
	attempts map[string][]time.Time

	sweeper *sweeper.Sweeper
}

func New(maxAttempts int, window time.Duration, opts ...Option) (*Limiter, error) {
	if maxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}

	l := &Limiter{
		maxAttempts:   maxAttempts,
		window:        window,
		sweepInterval: 2 * window,
		now:           time.Now,
		logger:        zap.NewNop(),
		attempts:      make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.sweeper = sweeper.New(l.sweepInterval, func(time.Time) {
		if n := l.Sweep(l.now()); n > 0 {
			l.logger.Debug("rate limiter sweep", zap.Int("evicted", n))
		}
	})

	return l, nil
}

// Allow records an attempt for identity and reports whether it is admitted.
// Rejected attempts are not recorded, so hammering while blocked does not
// extend the block.
func (l *Limiter) Allow(identity string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.attempts[identity], now.Add(-l.window))
	if len(recent) >= l.maxAttempts {
		l.attempts[identity] = recent
		return false
	}
	l.attempts[identity] = append(recent, now)
	return true
}

// Remaining reports how many attempts identity has left in the current window.
func (l *Limiter) Remaining(identity string) int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	used := 0
	for _, at := range l.attempts[identity] {
		if at.After(cutoff) {
			used++
		}
	}
	if used >= l.maxAttempts {
		return 0
	}
	return l.maxAttempts - used
}

// RetryAfter reports how long until identity regains at least one attempt.
// Zero means an attempt would be admitted now.
func (l *Limiter) RetryAfter(identity string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.attempts[identity], now.Add(-l.window))
	if len(recent) < l.maxAttempts {
		return 0
	}
	oldest := recent[len(recent)-l.maxAttempts]
	return oldest.Add(l.window).Sub(now)
}

func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identity)
}

func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = make(map[string][]time.Time)
}

// Sweep drops identities whose whole history is older than the window and
// returns how many were dropped.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sweep(l.attempts, now.Add(-l.window))
}

// Start launches the periodic sweep.
func (l *Limiter) Start() {
	l.sweeper.Start()
}

// Close stops the periodic sweep. Safe to call more than once.
func (l *Limiter) Close() {
	l.sweeper.Stop()
}

// prune returns the suffix of attempts newer than cutoff. attempts are kept in
// insertion order, which is also time order.
func prune(attempts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return attempts
	}
	return append([]time.Time(nil), attempts[i:]...)
}

func sweep(attempts map[string][]time.Time, cutoff time.Time) int {
	evicted := 0
	for identity, history := range attempts {
		if len(history) == 0 || !history[len(history)-1].After(cutoff) {
			delete(attempts, identity)
			evicted++
		}
	}
	return evicted
}
